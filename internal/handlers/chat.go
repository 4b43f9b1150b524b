package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/services/ai"
	"github.com/kmettler/habitloop/internal/services/chat"
	"github.com/kmettler/habitloop/internal/validation"
	"go.uber.org/zap"
)

const (
	// MaxChatMessageLength is the maximum length for a chat message
	MaxChatMessageLength = 10000
	// MaxImageSize is the maximum accepted image attachment size
	MaxImageSize = 10 << 20 // 10 MiB
)

var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ChatHandler handles AI chat requests
type ChatHandler struct {
	chatService *chat.Service
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.SendMessage).Methods("POST")
}

// ChatMessageRequest is the JSON body variant of a chat message
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// SendMessage accepts one chat turn. The body is either JSON with a message
// field or multipart/form-data with a message field and an optional image
// part. A message is required unless an image is attached.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var (
		message   string
		image     []byte
		imageMIME string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxImageSize); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid multipart body")
			return
		}
		message = r.FormValue("message")

		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			image, imageMIME, err = readImage(file, header)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
				return
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid image upload")
			return
		}
	} else {
		var req ChatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
		message = req.Message
	}

	message = validation.SanitizeText(message)
	if message == "" && len(image) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message is required")
		return
	}
	if len(message) > MaxChatMessageLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message is too long")
		return
	}

	// The provider tags its debug logs with the acting user.
	ctx := ai.WithUserID(r.Context(), user.ID.String())

	response, err := h.chatService.Process(ctx, user, message, image, imageMIME)
	if err != nil {
		if errors.Is(err, chat.ErrInterpretation) {
			// Interpreter failures surface as a bad gateway; the AI backend
			// is the upstream that failed. The error text is passed through
			// (respondJSONError truncates it) so clients can distinguish rate
			// limits from outages.
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", err.Error())
			return
		}
		h.logger.Error("chat_request_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// readImage validates and buffers an uploaded image part
func readImage(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > MaxImageSize {
		return nil, "", errors.New("Image exceeds maximum size")
	}

	mimeType := header.Header.Get("Content-Type")
	if !allowedImageMIMEs[mimeType] {
		return nil, "", errors.New("Unsupported image type")
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, "", errors.New("Failed to read image")
	}
	if len(data) > MaxImageSize {
		return nil, "", errors.New("Image exceeds maximum size")
	}

	return data, mimeType, nil
}
