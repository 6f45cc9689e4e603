package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status — итог проверки: зависимость либо отвечает, либо нет.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check — результат одной проверки в составе отчёта.
type Check struct {
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Report — ответ /healthz: агрегированный статус и разбивка по зависимостям.
type Report struct {
	Status        Status           `json:"status"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CheckedAt     time.Time        `json:"checked_at"`
	Checks        map[string]Check `json:"checks,omitempty"`
}

// Checker опрашивает одну зависимость. nil-ошибка означает, что зависимость жива.
type Checker interface {
	Check() error
}

// CheckerFunc адаптирует функцию под Checker.
type CheckerFunc func() error

func (f CheckerFunc) Check() error { return f() }

// Handler собирает зарегистрированные проверки и отдаёт /healthz и /readyz.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	version  string
	started  time.Time
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		version:  version,
		started:  time.Now(),
	}
}

// Register добавляет проверку зависимости. Повторная регистрация
// под тем же именем замещает предыдущую.
func (h *Handler) Register(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = c
}

// RegisterFunc регистрирует проверку из функции.
func (h *Handler) RegisterFunc(name string, fn func() error) {
	h.Register(name, CheckerFunc(fn))
}

func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	return checkers
}

// ServeHTTP отдаёт полный отчёт. 503, если хоть одна зависимость лежит.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := Report{
		Status:        StatusUp,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		CheckedAt:     time.Now().UTC(),
		Checks:        make(map[string]Check),
	}

	for name, checker := range h.snapshot() {
		start := time.Now()
		err := checker.Check()
		check := Check{Status: StatusUp, ElapsedMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = StatusDown
			check.Error = err.Error()
			report.Status = StatusDown
		}
		report.Checks[name] = check
	}

	code := http.StatusOK
	if report.Status == StatusDown {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// ReadinessHandler — облегчённый /readyz без тела отчёта.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	for _, checker := range h.snapshot() {
		if err := checker.Check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
