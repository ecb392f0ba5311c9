package handlers

import (
	"html/template"
	"net/http"
	"strings"
	"sync"
)

// Startup step names, in the order the server runs them
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepTemplates  = "Loading templates"
	StepServices   = "Initializing services"
	StepSeed       = "Seeding default lists"
	StepAudio      = "Preparing audio"
	StepReady      = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	Ready    bool
	Current  string
	Progress int
	Steps    []StartupStep
}

// StartupReport is the copy of StartupStatus served to clients
type StartupReport struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

func newStartupStatus() *StartupStatus {
	names := []string{StepDatabase, StepMigrations, StepTemplates, StepServices, StepSeed, StepAudio, StepReady}
	steps := make([]StartupStep, len(names))
	for i, name := range names {
		steps[i] = StartupStep{Name: name}
	}
	return &StartupStatus{Current: "Initializing...", Steps: steps}
}

var startupStatus = newStartupStatus()

// SetCurrentStep updates the current initialization step
func SetCurrentStep(step string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	startupStatus.Current = step
}

// CompleteStep marks a step as completed and updates progress
func CompleteStep(stepName string) {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()

	completed := 0
	for i := range startupStatus.Steps {
		if startupStatus.Steps[i].Name == stepName {
			startupStatus.Steps[i].Completed = true
		}
		if startupStatus.Steps[i].Completed {
			completed++
		}
	}
	startupStatus.Progress = (completed * 100) / len(startupStatus.Steps)
}

// MarkReady marks the server as fully initialized
func MarkReady() {
	startupStatus.mu.Lock()
	defer startupStatus.mu.Unlock()
	for i := range startupStatus.Steps {
		startupStatus.Steps[i].Completed = true
	}
	startupStatus.Ready = true
	startupStatus.Current = StepReady
	startupStatus.Progress = 100
}

// IsReady returns whether the server is fully initialized
func IsReady() bool {
	startupStatus.mu.RLock()
	defer startupStatus.mu.RUnlock()
	return startupStatus.Ready
}

func startupSnapshot() StartupReport {
	startupStatus.mu.RLock()
	defer startupStatus.mu.RUnlock()
	return StartupReport{
		Ready:    startupStatus.Ready,
		Current:  startupStatus.Current,
		Progress: startupStatus.Progress,
		Steps:    append([]StartupStep(nil), startupStatus.Steps...),
	}
}

// RequireReady shows the startup page until initialization has finished
func RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsReady() && !strings.HasPrefix(r.URL.Path, "/startup") {
			ShowStartupStatus(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartupStatusJSON reports initialization progress
func StartupStatusJSON(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, startupSnapshot())
}

var startupTemplate = template.Must(template.New("startup").Parse(`<!DOCTYPE html>
<html lang="zh-Hant">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<meta http-equiv="refresh" content="2">
	<title>聽寫練習 - 啟動中</title>
	<style>
		body { font-family: sans-serif; background: #fdf6e3; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
		.container { background: white; border-radius: 16px; padding: 32px; max-width: 460px; width: 100%; box-shadow: 0 10px 30px rgba(0,0,0,0.15); }
		h1 { text-align: center; margin-top: 0; }
		.progress-bar { height: 10px; background: #eee; border-radius: 5px; overflow: hidden; }
		.progress-fill { height: 100%; background: #f59e0b; }
		.progress-text { text-align: center; margin: 12px 0 20px; color: #b45309; font-weight: 600; }
		ul { list-style: none; padding: 0; }
		li { padding: 8px 0; border-bottom: 1px solid #f3f3f3; }
		li.completed { color: #10b981; }
		.current { text-align: center; font-style: italic; color: #b45309; margin-top: 16px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>🦉 聽寫練習</h1>
		<div class="progress-bar"><div class="progress-fill" style="width: {{.Progress}}%"></div></div>
		<div class="progress-text">{{.Progress}}%</div>
		<ul>
			{{range .Steps}}<li class="{{if .Completed}}completed{{end}}">{{if .Completed}}✓{{else}}○{{end}} {{.Name}}</li>
			{{end}}
		</ul>
		<div class="current">{{.Current}}</div>
	</div>
</body>
</html>`))

// ShowStartupStatus displays the startup status page
func ShowStartupStatus(w http.ResponseWriter, r *http.Request) {
	status := startupSnapshot()
	if status.Ready {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	startupTemplate.Execute(w, status)
}
