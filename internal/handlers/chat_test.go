package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
	"go.uber.org/zap"
)

// chatStubStore is an empty store; the handler tests only exercise plans
// with no actions, so nothing is ever looked up or staged.
type chatStubStore struct{}

func (chatStubStore) FindActiveHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	return nil, nil
}
func (chatStubStore) GetHabit(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	return nil, errors.New("not found")
}
func (chatStubStore) FindTags(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	return nil, nil
}
func (chatStubStore) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	return nil, errors.New("not found")
}
func (chatStubStore) FindHabitTagIDs(ctx context.Context, habitID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (chatStubStore) FindFacts(ctx context.Context, userID uuid.UUID) ([]*models.UserFact, error) {
	return nil, nil
}
func (chatStubStore) NewBatch() chat.Batch { return &chatStubBatch{} }

type chatStubBatch struct{}

func (*chatStubBatch) StageHabit(habit *models.Habit)        {}
func (*chatStubBatch) StageLog(log *models.HabitLog)         {}
func (*chatStubBatch) StageTagLink(habitID, tagID uuid.UUID) {}
func (*chatStubBatch) StageFact(fact *models.UserFact)       {}
func (*chatStubBatch) Len() int                              { return 0 }
func (*chatStubBatch) Commit(ctx context.Context) error      { return nil }

type chatStubInterpreter struct {
	plan *chat.ActionPlan
	err  error
	got  *chat.InterpretRequest
}

func (i *chatStubInterpreter) Interpret(ctx context.Context, req *chat.InterpretRequest) (*chat.ActionPlan, error) {
	i.got = req
	if i.err != nil {
		return nil, i.err
	}
	return i.plan, nil
}

type chatStubConflicts struct{}

func (chatStubConflicts) DetectConflict(ctx context.Context, schedule chat.ProposedSchedule, patterns []models.RoutinePattern) (*models.ScheduleConflict, error) {
	return nil, nil
}

type chatStubFacts struct{}

func (chatStubFacts) ExtractFacts(ctx context.Context, userMessage, assistantReply string, known []*models.UserFact) ([]chat.FactCandidate, error) {
	return nil, nil
}

type chatStubRoutines struct{}

func (chatStubRoutines) Patterns(ctx context.Context, userID uuid.UUID) ([]models.RoutinePattern, error) {
	return nil, nil
}

type chatStubNotifier struct{}

func (chatStubNotifier) HabitActivity(ctx context.Context, userID uuid.UUID) error { return nil }

func newChatTestHandler(interp chat.Interpreter) *ChatHandler {
	svc := chat.NewService(
		chatStubStore{},
		interp,
		chatStubConflicts{},
		chatStubFacts{},
		chatStubRoutines{},
		chatStubNotifier{},
		zap.NewNop(),
	)
	return NewChatHandler(svc, zap.NewNop())
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func chatRequest(user *models.User, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}
	return req
}

func TestSendMessage_Unauthorized(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{plan: &chat.ActionPlan{Message: "hi"}})
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(nil, `{"message":"hello"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSendMessage_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{plan: &chat.ActionPlan{Message: "hi"}})
	user := &models.User{ID: uuid.New()}
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(user, `{not json`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessage_MissingMessage(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{plan: &chat.ActionPlan{Message: "hi"}})
	user := &models.User{ID: uuid.New()}
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(user, `{"message":"   "}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Message != "Message is required" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestSendMessage_TooLong(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{plan: &chat.ActionPlan{Message: "hi"}})
	user := &models.User{ID: uuid.New()}
	long := strings.Repeat("a", MaxChatMessageLength+1)
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(user, `{"message":"`+long+`"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Message != "Message is too long" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestSendMessage_Success(t *testing.T) {
	t.Parallel()

	interp := &chatStubInterpreter{plan: &chat.ActionPlan{Message: "Logged it!"}}
	h := newChatTestHandler(interp)
	user := &models.User{ID: uuid.New()}
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(user, `{"message":"I went running"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Success bool          `json:"success"`
		Data    chat.Response `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !env.Success {
		t.Error("success = false")
	}
	if env.Data.Message != "Logged it!" {
		t.Errorf("data.message = %q", env.Data.Message)
	}
	if interp.got == nil || interp.got.Message != "I went running" {
		t.Errorf("interpreter request = %+v", interp.got)
	}
}

func TestSendMessage_InterpreterFailure(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{err: errors.New("model timeout")})
	user := &models.User{ID: uuid.New()}
	rec := httptest.NewRecorder()
	h.SendMessage(rec, chatRequest(user, `{"message":"hello"}`))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error != "Bad Gateway" {
		t.Errorf("error = %q", env.Error)
	}
	if !strings.Contains(env.Message, "model timeout") {
		t.Errorf("message = %q, want interpreter error text surfaced", env.Message)
	}
}

func multipartChatRequest(t *testing.T, user *models.User, message string, image []byte, imageMIME string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if message != "" {
		if err := mw.WriteField("message", message); err != nil {
			t.Fatalf("write message field: %v", err)
		}
	}
	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
		header.Set("Content-Type", imageMIME)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create image part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.SetUserInContext(req.Context(), user))
}

func TestSendMessage_MultipartWithImage(t *testing.T) {
	t.Parallel()

	interp := &chatStubInterpreter{plan: &chat.ActionPlan{Message: "Nice photo"}}
	h := newChatTestHandler(interp)
	user := &models.User{ID: uuid.New()}

	image := []byte{0x89, 'P', 'N', 'G'}
	rec := httptest.NewRecorder()
	h.SendMessage(rec, multipartChatRequest(t, user, "what is this?", image, "image/png"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if interp.got == nil {
		t.Fatal("interpreter was not called")
	}
	if !bytes.Equal(interp.got.Image, image) {
		t.Errorf("image = %v, want %v", interp.got.Image, image)
	}
	if interp.got.ImageMIME != "image/png" {
		t.Errorf("image MIME = %q", interp.got.ImageMIME)
	}
}

func TestSendMessage_MultipartImageOnly(t *testing.T) {
	t.Parallel()

	interp := &chatStubInterpreter{plan: &chat.ActionPlan{Message: "ok"}}
	h := newChatTestHandler(interp)
	user := &models.User{ID: uuid.New()}

	rec := httptest.NewRecorder()
	h.SendMessage(rec, multipartChatRequest(t, user, "", []byte{0xff, 0xd8}, "image/jpeg"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when image is attached without text: %s", rec.Code, rec.Body.String())
	}
}

func TestSendMessage_MultipartBadMIME(t *testing.T) {
	t.Parallel()

	h := newChatTestHandler(&chatStubInterpreter{plan: &chat.ActionPlan{Message: "ok"}})
	user := &models.User{ID: uuid.New()}

	rec := httptest.NewRecorder()
	h.SendMessage(rec, multipartChatRequest(t, user, "look", []byte("GIF89a"), "application/pdf"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Message != "Unsupported image type" {
		t.Errorf("message = %q", env.Message)
	}
}
