package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/routes"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/services/payments"
	"github.com/aimastery/academy/backend/services/tts"
	"github.com/aimastery/academy/backend/testutil"
	"github.com/aimastery/academy/backend/utils"
)

type fakeGateway struct {
	requests []payments.CheckoutRequest
	fail     error
	event    *payments.Event
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	g.requests = append(g.requests, req)
	return &payments.CheckoutSession{ID: "cs_test_" + string(req.Tier), URL: "https://checkout.example/" + string(req.Tier)}, nil
}

// ParseWebhook accepts the signature "valid" and returns the configured event.
func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (*payments.Event, error) {
	if signature != "valid" || g.event == nil {
		return nil, payments.ErrInvalidSignature
	}
	return g.event, nil
}

type fakeSpeech struct {
	audio []byte
	err   error
	text  string
}

func (s *fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.text = text
	return s.audio, s.err
}

type harness struct {
	t       *testing.T
	db      *gorm.DB
	cfg     *config.Config
	app     *fiber.App
	mailer  *email.ConsoleSender
	gateway *fakeGateway
	speech  *fakeSpeech
	logs    *bytes.Buffer
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:              "test",
		AllowOrigins:         "*",
		FrontendURL:          "http://frontend.test",
		JWTSecret:            "test-secret",
		JWTExpiration:        time.Hour,
		RateLimitMax:         1000,
		RateLimitWindow:      time.Minute,
		Currency:             "usd",
		PriceStarter:         4900,
		PricePro:             9900,
		PriceMaster:          19900,
		PromoTotalSpots:      10,
		PromoDiscountPercent: 50,
	}
}

type harnessOption func(*routes.Dependencies)

func withoutPayments() harnessOption {
	return func(d *routes.Dependencies) { d.Payments = nil }
}

func withConfig(fn func(*config.Config)) harnessOption {
	return func(d *routes.Dependencies) { fn(d.Cfg) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		db:      testutil.NewDB(t),
		cfg:     testConfig(),
		mailer:  email.NewConsoleSender(nil),
		gateway: &fakeGateway{},
		speech:  &fakeSpeech{audio: []byte("ID3")},
		logs:    &bytes.Buffer{},
	}
	std := log.New(h.logs, "", 0)
	deps := routes.Dependencies{
		DB:       h.db,
		Cfg:      h.cfg,
		Logger:   std,
		Reporter: logging.NewStdLogger(std),
		Mailer:   h.mailer,
		Payments: h.gateway,
		Speech:   h.speech,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.app = routes.NewApp(deps)
	return h
}

func (h *harness) user(username string, tier models.Tier) *models.User {
	return testutil.CreateUser(h.t, h.db, username, tier)
}

func (h *harness) admin(username string) *models.User {
	u := h.user(username, models.TierFree)
	require.NoError(h.t, h.db.Model(u).Update("is_admin", true).Error)
	u.IsAdmin = true
	return u
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
	Meta    json.RawMessage `json:"meta"`
}

type response struct {
	Status int
	Header map[string]string
	Raw    []byte
	Body   envelope
}

// into decodes the data member.
func (r response) into(t *testing.T, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, out), string(r.Raw))
}

// request sends body as JSON and authenticates as user when it is not nil.
func (h *harness) request(method, path string, body interface{}, user *models.User, headers ...string) response {
	h.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if user != nil {
		token, err := utils.GenerateJWTToken(user.ID, h.cfg)
		require.NoError(h.t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)

	out := response{Status: resp.StatusCode, Raw: raw, Header: map[string]string{}}
	for k := range resp.Header {
		out.Header[k] = resp.Header.Get(k)
	}
	if len(raw) > 0 && resp.Header.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		require.NoError(h.t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (h *harness) get(path string, user *models.User) response {
	h.t.Helper()
	return h.request(fiber.MethodGet, path, nil, user)
}

func (h *harness) post(path string, body interface{}, user *models.User) response {
	h.t.Helper()
	return h.request(fiber.MethodPost, path, body, user)
}

func (h *harness) put(path string, body interface{}, user *models.User) response {
	h.t.Helper()
	return h.request(fiber.MethodPut, path, body, user)
}

func (h *harness) delete(path string, user *models.User) response {
	h.t.Helper()
	return h.request(fiber.MethodDelete, path, nil, user)
}

var errGatewayDown = errors.New("gateway down")

var _ tts.Synthesizer = (*fakeSpeech)(nil)
var _ payments.Gateway = (*fakeGateway)(nil)
