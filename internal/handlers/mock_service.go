package handlers

import (
	"context"
	"net/http"
	"time"

	"airfilter_hub/internal/models"
	"airfilter_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockReconciler struct {
	actionErr error
	prompts   models.PromptFlags
	state     models.RelayState
	known     bool

	acceptCalls     int
	declineCalls    int
	deferShortCalls int
	deferLongCalls  int
	confirmCalls    int
	reverseCalls    int
	cautionCloses   int
	reminderCloses  int
}

func (m *mockReconciler) Tick(ctx context.Context) error                 { return nil }
func (m *mockReconciler) Run(ctx context.Context, tick time.Duration)    {}
func (m *mockReconciler) Accept(ctx context.Context) error               { m.acceptCalls++; return m.actionErr }
func (m *mockReconciler) Decline(ctx context.Context) error              { m.declineCalls++; return m.actionErr }
func (m *mockReconciler) DeferShort(ctx context.Context) error           { m.deferShortCalls++; return m.actionErr }
func (m *mockReconciler) DeferLong(ctx context.Context) error            { m.deferLongCalls++; return m.actionErr }
func (m *mockReconciler) ConfirmDecline(ctx context.Context) error       { m.confirmCalls++; return m.actionErr }
func (m *mockReconciler) ReverseDecline(ctx context.Context) error       { m.reverseCalls++; return m.actionErr }
func (m *mockReconciler) CloseCaution(ctx context.Context)               { m.cautionCloses++ }
func (m *mockReconciler) CloseReminderNotice(ctx context.Context)        { m.reminderCloses++ }
func (m *mockReconciler) Prompts() models.PromptFlags                    { return m.prompts }
func (m *mockReconciler) Authoritative(ctx context.Context) (models.RelayState, bool) {
	return m.state, m.known
}

type mockMonitoring struct {
	snapshot models.DashboardSnapshot
	readings []models.Reading
	err      error

	lastWindowChannel models.Channel
	lastWindowN       int
}

func (m *mockMonitoring) Snapshot(ctx context.Context) (models.DashboardSnapshot, error) {
	return m.snapshot, m.err
}
func (m *mockMonitoring) Window(ctx context.Context, ch models.Channel, n int) ([]models.Reading, error) {
	m.lastWindowChannel = ch
	m.lastWindowN = n
	return m.readings, m.err
}

type mockEventLog struct {
	resp     []models.ControlEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControlEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
