package system

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// CheckFunc проверяет одну зависимость; nil означает готовность
type CheckFunc func(ctx context.Context) error

// CheckResult - результат одной проверки
type CheckResult struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// Report - сводный результат проверки готовности
type Report struct {
	Ready  bool          `json:"ready"`
	Checks []CheckResult `json:"checks"`
}

// Readiness выполняет зарегистрированные проверки параллельно
type Readiness struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewReadiness создает набор проверок с общим таймаутом
func NewReadiness(timeout time.Duration) *Readiness {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Readiness{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// Register добавляет проверку; повторная регистрация имени заменяет ее
func (r *Readiness) Register(name string, check CheckFunc) {
	if check == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Check запускает все проверки
func (r *Readiness) Check(ctx context.Context) Report {
	r.mu.RLock()
	checks := make(map[string]CheckFunc, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]CheckResult, 0, len(checks))
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			startedAt := time.Now()
			err := check(ctx)

			result := CheckResult{Name: name, OK: err == nil, Duration: time.Since(startedAt)}
			if err != nil {
				result.Error = err.Error()
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	report := Report{Ready: true, Checks: results}
	for _, result := range results {
		if !result.OK {
			report.Ready = false
			break
		}
	}
	return report
}

// MemoryCheck отказывает, когда занятая память превышает порог в процентах
func MemoryCheck(maxUsedPercent float64) CheckFunc {
	return memoryCheck(maxUsedPercent, func(ctx context.Context) (float64, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	})
}

func memoryCheck(maxUsedPercent float64, usedPercent func(context.Context) (float64, error)) CheckFunc {
	return func(ctx context.Context) error {
		if maxUsedPercent <= 0 {
			return nil
		}
		used, err := usedPercent(ctx)
		if err != nil {
			return fmt.Errorf("failed to read memory stats: %w", err)
		}
		if used > maxUsedPercent {
			return fmt.Errorf("memory usage %.1f%% exceeds %.1f%%", used, maxUsedPercent)
		}
		return nil
	}
}

// DiskCheck отказывает, когда на разделе с path свободно меньше minFreeBytes
// Загрузки буферизуются во временном каталоге, поэтому обычно path = os.TempDir()
func DiskCheck(path string, minFreeBytes uint64) CheckFunc {
	return diskCheck(minFreeBytes, func(ctx context.Context) (uint64, error) {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return 0, err
		}
		return usage.Free, nil
	})
}

func diskCheck(minFreeBytes uint64, free func(context.Context) (uint64, error)) CheckFunc {
	return func(ctx context.Context) error {
		if minFreeBytes == 0 {
			return nil
		}
		available, err := free(ctx)
		if err != nil {
			return fmt.Errorf("failed to read disk usage: %w", err)
		}
		if available < minFreeBytes {
			return fmt.Errorf("free disk space %d MiB is below %d MiB", available>>20, minFreeBytes>>20)
		}
		return nil
	}
}
