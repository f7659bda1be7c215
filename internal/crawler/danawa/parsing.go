package danawa

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/darkkaiser/price-search-server/internal/engine"
	"github.com/darkkaiser/price-search-server/internal/match"
	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// accessoryBrandHints 액세서리 전문 브랜드 목록. 검색어에 브랜드가 없는데
// 상품명이 이 브랜드로 시작하면 본품이 아닌 액세서리일 가능성이 높습니다.
var accessoryBrandHints = []string{
	"힐링쉴드", "폰트리", "슈피겐", "신지모루", "스코코", "좀비베리어",
}

// discontinuedSelector 단종/판매 중지 상품 페이지의 마커 선택자
const discontinuedSelector = ".discontinued, .no_result, .lowest_report"

// maxSearchLinks 검색 페이지 한 장에서 채점할 상품 링크 수 상한
const maxSearchLinks = 12

// parseSearchPCodes 검색 결과 페이지에서 후보 검색어와 일치하는 상품 코드
// 목록을 추출합니다.
//
// 상품명 링크를 우선 수집하고, 없으면 pcode 링크 전체를 수집합니다. 각 링크의
// 텍스트를 후보 검색어로 채점하여 0점 링크는 제외하고, 점수 내림차순 상위
// max개를 반환합니다. DOM에서 링크를 전혀 찾지 못하면 원문에서 정규식으로
// 상품 코드를 직접 수집합니다.
func parseSearchPCodes(doc *goquery.Document, candidate string, max int) []string {
	scores := make(map[string]float64)
	var order []string

	collect := func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		pcode := ExtractPCode(href)
		if pcode == "" {
			return
		}
		score := match.Score(candidate, strings.TrimSpace(sel.Text()))
		if score <= 0 {
			return
		}
		if prev, ok := scores[pcode]; !ok {
			scores[pcode] = score
			order = append(order, pcode)
		} else if score > prev {
			scores[pcode] = score
		}
	}

	doc.Find(".prod_item .prod_name a").Each(collect)
	if len(order) == 0 {
		doc.Find(`a[href*="pcode="]`).Each(collect)
	}
	if len(order) == 0 {
		if html, err := doc.Html(); err == nil {
			for _, m := range pcodeRe.FindAllStringSubmatch(html, -1) {
				if _, ok := scores[m[1]]; ok {
					continue
				}
				scores[m[1]] = 0
				order = append(order, m[1])
				if len(order) >= max {
					break
				}
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

// parseProduct 상품 상세 페이지에서 상품 정보를 추출합니다.
//
// 가격비교 테이블(#lowPriceCompanyArea)의 판매처 목록을 우선 사용하고,
// 테이블이 없으면 최저가 영역(.lowest_area)의 단일 가격으로 대체합니다.
func parseProduct(doc *goquery.Document, urls *URLBuilder, pcode, productURL string) (*engine.Product, error) {
	if doc.Find(discontinuedSelector).Length() > 0 {
		return nil, apperrors.Newf(apperrors.NotFound, "단종되었거나 판매가 중지된 상품입니다. (pcode:%s)", pcode)
	}

	name := strings.TrimSpace(doc.Find(".prod_tit").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find(".top_summary .title").First().Text())
	}

	offers := parseMallOffers(doc, urls)

	product := &engine.Product{
		PCode:  pcode,
		URL:    productURL,
		Name:   name,
		Offers: offers,
	}

	if len(offers) > 0 {
		best := offers[0]
		for _, offer := range offers[1:] {
			if offer.Price > 0 && (best.Price <= 0 || offer.Price < best.Price) {
				best = offer
			}
		}
		product.Price = best.Price
		product.Mall = best.Mall
		product.FreeShipping = best.FreeShipping
		return product, nil
	}

	// 가격비교 테이블이 없는 상품은 최저가 영역으로 대체
	if price := parsePrice(doc.Find(".lowest_area .price_sect .num").First().Text()); price > 0 {
		product.Price = price
		return product, nil
	}

	return nil, apperrors.Newf(apperrors.ParsingFailed, "상품 페이지에서 가격 정보를 찾지 못했습니다. (pcode:%s)", pcode)
}

// maxMallOffers 응답에 포함할 판매처 최대 개수
const maxMallOffers = 3

// parseMallOffers 가격비교 테이블에서 판매처 목록을 추출합니다.
func parseMallOffers(doc *goquery.Document, urls *URLBuilder) []engine.MallOffer {
	var offers []engine.MallOffer

	doc.Find("#lowPriceCompanyArea .box__mall-price .list__mall-price .list-item").Each(func(_ int, item *goquery.Selection) {
		if len(offers) >= maxMallOffers {
			return
		}

		price := parsePrice(item.Find(".sell-price .text__num").Text())
		if price <= 0 {
			return
		}

		mall, _ := item.Find(".box__logo img").Attr("alt")
		href, _ := item.Find("a.link__full-cover").Attr("href")

		offers = append(offers, engine.MallOffer{
			Mall:         strings.TrimSpace(mall),
			Price:        price,
			FreeShipping: strings.Contains(item.Find(".box__delivery").Text(), "무료"),
			Delivery:     strings.TrimSpace(item.Find(".box__delivery").Text()),
			URL:          urls.ResolveLink(href),
		})
	})

	return offers
}

// parsePrice 가격 문자열에서 숫자만 추출하여 정수로 변환합니다.
// "1,590,000원" → 1590000. 변환 불가 시 0을 반환합니다.
func parsePrice(s string) int {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	price, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return price
}

// isAccessoryBrandTrap 검색어에 없는 액세서리 전문 브랜드가 상품명에 포함되어
// 있는지 확인합니다.
func isAccessoryBrandTrap(query, productName string) bool {
	for _, brand := range accessoryBrandHints {
		if strings.Contains(productName, brand) && !strings.Contains(query, brand) {
			return true
		}
	}
	return false
}
