package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testStageBudgets() StageBudgets {
	return StageBudgets{
		Cache:        50 * time.Millisecond,
		FastPath:     200 * time.Millisecond,
		SlowPath:     300 * time.Millisecond,
		MinRemaining: 30 * time.Millisecond,
	}
}

func TestBudgetManager_Remaining(t *testing.T) {
	b := NewBudgetManager(time.Second, testStageBudgets())

	assert.False(t, b.IsExhausted())
	assert.Greater(t, b.Remaining(), 900*time.Millisecond)
	assert.Less(t, b.Elapsed(), 100*time.Millisecond)
}

func TestBudgetManager_Exhaustion(t *testing.T) {
	b := NewBudgetManager(time.Millisecond, testStageBudgets())

	time.Sleep(5 * time.Millisecond)

	assert.True(t, b.IsExhausted())
	assert.Equal(t, time.Duration(0), b.Remaining())
	assert.False(t, b.CanExecute(StageFastPath))
}

func TestBudgetManager_CanExecute(t *testing.T) {
	t.Run("잔여 예산이 충분하면 실행 가능", func(t *testing.T) {
		b := NewBudgetManager(time.Second, testStageBudgets())
		assert.True(t, b.CanExecute(StageCache))
		assert.True(t, b.CanExecute(StageFastPath))
		assert.True(t, b.CanExecute(StageSlowPath))
	})

	t.Run("잔여 예산이 단계 예산 미만이면 실행 불가", func(t *testing.T) {
		b := NewBudgetManager(10*time.Millisecond, testStageBudgets())
		time.Sleep(5 * time.Millisecond)
		// 남은 예산 5ms < 슬로우패스 예산 300ms
		assert.False(t, b.CanExecute(StageSlowPath))
	})

	t.Run("예산이 남아 있어도 단계 예산에 못 미치면 실행 불가", func(t *testing.T) {
		stages := StageBudgets{
			Cache:        20 * time.Millisecond,
			FastPath:     50 * time.Millisecond,
			SlowPath:     120 * time.Millisecond,
			MinRemaining: 20 * time.Millisecond,
		}
		b := NewBudgetManager(200*time.Millisecond, stages)
		time.Sleep(100 * time.Millisecond)

		// 남은 예산 약 100ms는 슬로우패스 예산 120ms에 못 미친다
		assert.False(t, b.CanExecute(StageSlowPath))
		// 최소 잔여 예산 20ms보다는 크므로 아직 소진 상태는 아니다
		assert.False(t, b.IsExhausted())
		assert.True(t, b.CanExecute(StageFastPath))
	})
}

func TestBudgetManager_IsExhausted_최소잔여기준(t *testing.T) {
	stages := testStageBudgets()
	b := NewBudgetManager(20*time.Millisecond, stages)

	assert.False(t, b.IsExhausted())

	time.Sleep(5 * time.Millisecond)
	// 남은 예산 약 15ms < 최소 잔여 예산 30ms
	assert.True(t, b.IsExhausted())
}

func TestBudgetManager_TimeoutFor(t *testing.T) {
	t.Run("단계 예산과 잔여 예산 중 작은 값", func(t *testing.T) {
		b := NewBudgetManager(time.Second, testStageBudgets())

		// 잔여 예산이 충분하므로 단계 예산이 그대로 할당된다
		assert.LessOrEqual(t, b.TimeoutFor(StageCache), 50*time.Millisecond)
		assert.LessOrEqual(t, b.TimeoutFor(StageFastPath), 200*time.Millisecond)
	})

	t.Run("잔여 예산이 단계 예산보다 작으면 잔여 예산으로 제한", func(t *testing.T) {
		b := NewBudgetManager(100*time.Millisecond, testStageBudgets())
		time.Sleep(20 * time.Millisecond)

		timeout := b.TimeoutFor(StageSlowPath)
		assert.LessOrEqual(t, timeout, b.Remaining()+10*time.Millisecond)
		assert.Less(t, timeout, 300*time.Millisecond)
	})

	t.Run("알 수 없는 단계는 잔여 예산 전체", func(t *testing.T) {
		b := NewBudgetManager(time.Second, testStageBudgets())
		assert.Greater(t, b.TimeoutFor("unknown"), 500*time.Millisecond)
	})
}

func TestBudgetManager_Checkpoints(t *testing.T) {
	b := NewBudgetManager(time.Second, testStageBudgets())

	b.Checkpoint("cache_miss")
	time.Sleep(2 * time.Millisecond)
	b.Checkpoint("fastpath_success")

	report := b.Report()
	assert.Len(t, report.Checkpoints, 2)
	assert.Equal(t, "cache_miss", report.Checkpoints[0].Name)
	assert.Equal(t, "fastpath_success", report.Checkpoints[1].Name)

	// 경과 시간은 단조 증가해야 한다
	assert.LessOrEqual(t, report.Checkpoints[0].Elapsed, report.Checkpoints[1].Elapsed)
	assert.LessOrEqual(t, report.Checkpoints[1].Elapsed, report.Elapsed)
	assert.Equal(t, time.Second, report.Total)
}

func TestBudgetManager_Checkpoint_동일이름갱신(t *testing.T) {
	b := NewBudgetManager(time.Second, testStageBudgets())

	b.Checkpoint("fastpath_failed")
	first := b.Report().Checkpoints[0].Elapsed

	time.Sleep(2 * time.Millisecond)
	b.Checkpoint("fastpath_failed")

	report := b.Report()
	assert.Len(t, report.Checkpoints, 1)
	assert.Equal(t, "fastpath_failed", report.Checkpoints[0].Name)
	assert.Greater(t, report.Checkpoints[0].Elapsed, first)
}
