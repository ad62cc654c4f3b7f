package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/service"
)

// --- Mock RegistrationService ---

type mockRegistrationService struct {
	registerFn func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	lookupFn   func(ctx context.Context, t string) (*model.Registration, error)
	documentFn func(ctx context.Context, t string) (string, error)
	initiateFn func(ctx context.Context, t string) (*payment.OrderHandle, error)
	gatewayFn  func(ctx context.Context, n payment.Notification) (*service.GatewayOutcome, error)
	confirmFn  func(ctx context.Context, t string, proof io.Reader) (*model.Registration, error)
}

func (m *mockRegistrationService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	return m.registerFn(ctx, in)
}
func (m *mockRegistrationService) Lookup(ctx context.Context, t string) (*model.Registration, error) {
	return m.lookupFn(ctx, t)
}
func (m *mockRegistrationService) Document(ctx context.Context, t string) (string, error) {
	return m.documentFn(ctx, t)
}
func (m *mockRegistrationService) InitiatePayment(ctx context.Context, t string) (*payment.OrderHandle, error) {
	return m.initiateFn(ctx, t)
}
func (m *mockRegistrationService) CompleteGatewayPayment(ctx context.Context, n payment.Notification) (*service.GatewayOutcome, error) {
	return m.gatewayFn(ctx, n)
}
func (m *mockRegistrationService) ConfirmPayment(ctx context.Context, t string, proof io.Reader) (*model.Registration, error) {
	return m.confirmFn(ctx, t, proof)
}
func (m *mockRegistrationService) EventInfo() service.EventInfo {
	return service.EventInfo{Name: "Annual Day", UnitPrice: 100, Currency: "INR", BasePeople: 3, Open: true}
}
func (m *mockRegistrationService) DocumentURL(t string) string {
	return "https://tickets.example.com/v1/tickets/" + t + "/document"
}

// --- Mock GateService ---

type mockGateService struct {
	redeemFn      func(ctx context.Context, t string) (*service.RedeemResult, error)
	redeemImageFn func(ctx context.Context, img io.Reader) (*service.RedeemResult, error)
}

func (m *mockGateService) Redeem(ctx context.Context, t string) (*service.RedeemResult, error) {
	return m.redeemFn(ctx, t)
}
func (m *mockGateService) RedeemImage(ctx context.Context, img io.Reader) (*service.RedeemResult, error) {
	return m.redeemImageFn(ctx, img)
}

// --- Mock AdminService ---

type mockAdminService struct {
	verifyFn   func(ctx context.Context, t string) (*model.Registration, error)
	listFn     func(ctx context.Context, st []model.PaymentStatus) ([]model.Registration, error)
	statsFn    func(ctx context.Context) (model.RegistrationStats, error)
	messagesFn func(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error)
	resendFn   func(ctx context.Context, id string) (*model.OutboundMessage, error)
}

func (m *mockAdminService) VerifyPayment(ctx context.Context, t string) (*model.Registration, error) {
	return m.verifyFn(ctx, t)
}
func (m *mockAdminService) ListPayments(ctx context.Context, st []model.PaymentStatus) ([]model.Registration, error) {
	return m.listFn(ctx, st)
}
func (m *mockAdminService) Stats(ctx context.Context) (model.RegistrationStats, error) {
	return m.statsFn(ctx)
}
func (m *mockAdminService) ListMessages(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error) {
	return m.messagesFn(ctx, status, limit)
}
func (m *mockAdminService) ResendMessage(ctx context.Context, id string) (*model.OutboundMessage, error) {
	return m.resendFn(ctx, id)
}

// --- helpers ---

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, target, field string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, "upload.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func withTicket(c echo.Context, t string) echo.Context {
	c.SetParamNames("ticket")
	c.SetParamValues(t)
	return c
}

func sampleReg(status model.PaymentStatus) *model.Registration {
	return &model.Registration{
		ID: 1, ChildRoll: "R-1", ChildName: "Asha", ClassSection: "LKG-A",
		Guest1Name: "Parent", Phone: "9999999999", PassCount: 2, TotalPeople: 4,
		AmountPaid: 100, PaymentStatus: status, TicketNumber: "EVT-2026-000001",
	}
}

// --- Registration ---

func TestRegister_Created(t *testing.T) {
	var got service.RegisterInput
	svc := &mockRegistrationService{
		registerFn: func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
			got = in
			return &service.RegisterResult{Registration: *sampleReg(model.PaymentPending), DocumentURL: "u"}, nil
		},
	}
	e := echo.New()
	rec := httptest.NewRecorder()
	body := `{"child_roll":"R-1","child_name":"Asha","class_section":"LKG-A","guest1_name":"Parent","phone":"9999999999","pass_count":2}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/registrations", body), rec)

	require.NoError(t, NewRegistrationHandler(svc).Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, got.PassCount)
	assert.Equal(t, "R-1", got.ChildRoll)

	var resp service.RegisterResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "EVT-2026-000001", resp.Registration.TicketNumber)
}

func TestRegister_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"closed", service.ErrRegistrationClosed, http.StatusGone},
		{"duplicate", service.ErrDuplicateRegistration, http.StatusConflict},
		{"validation", &service.ValidationError{Fields: map[string]string{"phone": "required"}}, http.StatusUnprocessableEntity},
		{"exhausted", service.ErrTicketSpaceExhausted, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRegistrationService{
				registerFn: func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
					return nil, tc.err
				},
			}
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/v1/registrations", `{}`), rec)
			require.NoError(t, NewRegistrationHandler(svc).Register(c))
			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRegister_GatewayFailureKeepsTicket(t *testing.T) {
	svc := &mockRegistrationService{
		registerFn: func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
			return &service.RegisterResult{Registration: *sampleReg(model.PaymentPending)}, service.ErrGateway
		},
	}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/registrations", `{}`), rec)

	require.NoError(t, NewRegistrationHandler(svc).Register(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "EVT-2026-000001")
	assert.Contains(t, rec.Body.String(), "/v1/registrations/EVT-2026-000001/payment")
}

func TestLookup(t *testing.T) {
	svc := &mockRegistrationService{
		lookupFn: func(ctx context.Context, tk string) (*model.Registration, error) {
			if tk == "EVT-2026-000001" {
				return sampleReg(model.PaymentFree), nil
			}
			return nil, service.ErrTicketNotFound
		},
	}
	h := NewRegistrationHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.Lookup(withTicket(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), "EVT-2026-000001")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/v1/tickets/EVT-2026-000001/document")

	rec = httptest.NewRecorder()
	require.NoError(t, h.Lookup(withTicket(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), "NOPE")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadProof(t *testing.T) {
	var received []byte
	svc := &mockRegistrationService{
		confirmFn: func(ctx context.Context, tk string, proof io.Reader) (*model.Registration, error) {
			if proof == nil {
				return nil, service.ErrUploadInvalid
			}
			received, _ = io.ReadAll(proof)
			return sampleReg(model.PaymentAwaitingVerification), nil
		},
	}
	h := NewRegistrationHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	req := multipartRequest(t, "/v1/registrations/EVT-2026-000001/payment-proof", "proof", []byte("image-bytes"))
	require.NoError(t, h.UploadProof(withTicket(e.NewContext(req, rec), "EVT-2026-000001")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("image-bytes"), received)
	assert.Contains(t, rec.Body.String(), "AWAITING_VERIFICATION")

	rec = httptest.NewRecorder()
	req = multipartRequest(t, "/v1/registrations/EVT-2026-000001/payment-proof", "other", []byte("x"))
	require.NoError(t, h.UploadProof(withTicket(e.NewContext(req, rec), "EVT-2026-000001")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiatePayment(t *testing.T) {
	svc := &mockRegistrationService{
		initiateFn: func(ctx context.Context, tk string) (*payment.OrderHandle, error) {
			if tk == "EVT-2026-000002" {
				return nil, service.ErrNothingToPay
			}
			return &payment.OrderHandle{OrderID: tk + "~ab12cd34", Token: "snap", RedirectURL: "https://pay"}, nil
		},
	}
	h := NewRegistrationHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.InitiatePayment(withTicket(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), "EVT-2026-000001")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_url":"https://pay"`)

	rec = httptest.NewRecorder()
	require.NoError(t, h.InitiatePayment(withTicket(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), "EVT-2026-000002")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGatewayNotification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"applied", nil, http.StatusOK},
		{"unknown ticket acknowledged", service.ErrTicketNotFound, http.StatusOK},
		{"bad signature", service.ErrInvalidSignature, http.StatusUnauthorized},
		{"store down retried", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRegistrationService{
				gatewayFn: func(ctx context.Context, n payment.Notification) (*service.GatewayOutcome, error) {
					assert.Equal(t, "EVT-2026-000001~ab12cd34", n.OrderID)
					if tc.err != nil {
						return nil, tc.err
					}
					return &service.GatewayOutcome{TicketNumber: "EVT-2026-000001", PaymentStatus: model.PaymentPaid, Applied: true}, nil
				},
			}
			e := echo.New()
			rec := httptest.NewRecorder()
			body := `{"order_id":"EVT-2026-000001~ab12cd34","status_code":"200","gross_amount":"100.00","transaction_status":"settlement","signature_key":"x"}`
			c := e.NewContext(jsonRequest(http.MethodPost, "/v1/payments/midtrans/notification", body), rec)
			require.NoError(t, NewRegistrationHandler(svc).GatewayNotification(c))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EVT-2026-000001.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 test"), 0o644))
	svc := &mockRegistrationService{
		documentFn: func(ctx context.Context, tk string) (string, error) { return path, nil },
	}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := withTicket(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), "evt-2026-000001")

	require.NoError(t, NewRegistrationHandler(svc).Document(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "EVT-2026-000001.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestEvent(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, NewRegistrationHandler(&mockRegistrationService{}).Event(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Annual Day"`)
}

// --- Gate ---

func TestGateRedeem_StatusCodes(t *testing.T) {
	verdicts := map[string]service.RedeemStatus{
		"EVT-2026-000001": service.RedeemOK,
		"EVT-2026-000002": service.RedeemAlreadyUsed,
		"EVT-2026-000404": service.RedeemInvalid,
	}
	svc := &mockGateService{
		redeemFn: func(ctx context.Context, tk string) (*service.RedeemResult, error) {
			return &service.RedeemResult{Status: verdicts[tk], TicketNumber: tk}, nil
		},
	}
	h := NewGateHandler(svc)
	e := echo.New()

	for tk, want := range map[string]int{
		"EVT-2026-000001": http.StatusOK,
		"EVT-2026-000002": http.StatusConflict,
		"EVT-2026-000404": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/v1/gate/redeem", `{"ticket_number":"`+tk+`"}`), rec)
		require.NoError(t, h.Redeem(c))
		assert.Equal(t, want, rec.Code, tk)
		assert.Contains(t, rec.Body.String(), string(verdicts[tk]))
	}

	rec := httptest.NewRecorder()
	require.NoError(t, h.Redeem(e.NewContext(jsonRequest(http.MethodPost, "/v1/gate/redeem", `{}`), rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateRedeem_Image(t *testing.T) {
	svc := &mockGateService{
		redeemImageFn: func(ctx context.Context, img io.Reader) (*service.RedeemResult, error) {
			b, _ := io.ReadAll(img)
			if string(b) == "blank" {
				return nil, service.ErrQRNotDetected
			}
			return &service.RedeemResult{Status: service.RedeemOK, TicketNumber: "EVT-2026-000001"}, nil
		},
	}
	h := NewGateHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.Redeem(e.NewContext(multipartRequest(t, "/v1/gate/redeem", "qr_image", []byte("qr")), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, h.Redeem(e.NewContext(multipartRequest(t, "/v1/gate/redeem", "qr_image", []byte("blank")), rec)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// --- Admin ---

func TestAdminHandlers(t *testing.T) {
	var gotStatuses []model.PaymentStatus
	var gotLimit int
	svc := &mockAdminService{
		verifyFn: func(ctx context.Context, tk string) (*model.Registration, error) {
			if tk == "EVT-2026-000003" {
				return nil, service.ErrNotVerifiable
			}
			return sampleReg(model.PaymentVerified), nil
		},
		listFn: func(ctx context.Context, st []model.PaymentStatus) ([]model.Registration, error) {
			gotStatuses = st
			return []model.Registration{*sampleReg(model.PaymentAwaitingVerification)}, nil
		},
		statsFn: func(ctx context.Context) (model.RegistrationStats, error) {
			return model.RegistrationStats{Registrations: 3, People: 12}, nil
		},
		messagesFn: func(ctx context.Context, status string, limit int) ([]model.OutboundMessage, error) {
			gotLimit = limit
			return []model.OutboundMessage{{ID: "m1", Status: status}}, nil
		},
		resendFn: func(ctx context.Context, id string) (*model.OutboundMessage, error) {
			if id == "sent" {
				return nil, service.ErrMessageAlreadySent
			}
			return &model.OutboundMessage{ID: id, Status: model.MessageQueued}, nil
		},
	}
	h := NewAdminHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.ListPayments(e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=awaiting_verification,paid", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.PaymentStatus{model.PaymentAwaitingVerification, model.PaymentPaid}, gotStatuses)

	rec = httptest.NewRecorder()
	require.NoError(t, h.ListPayments(e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=bogus", nil), rec)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, h.VerifyPayment(withTicket(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), "EVT-2026-000001")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "VERIFIED")

	rec = httptest.NewRecorder()
	require.NoError(t, h.VerifyPayment(withTicket(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), "EVT-2026-000003")))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, h.Stats(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Contains(t, rec.Body.String(), `"people":12`)

	rec = httptest.NewRecorder()
	require.NoError(t, h.ListMessages(e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=FAILED&limit=20", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, gotLimit)

	rec = httptest.NewRecorder()
	require.NoError(t, h.ListMessages(e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=x", nil), rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for id, want := range map[string]int{"m1": http.StatusAccepted, "sent": http.StatusConflict} {
		rec = httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, h.ResendMessage(c))
		assert.Equal(t, want, rec.Code, id)
	}
}
