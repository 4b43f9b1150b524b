package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kmettler/habitloop/internal/models"
	"github.com/kmettler/habitloop/internal/services/chat"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// NewOpenAIProviderWithConfig creates a new OpenAI provider with custom configuration
func NewOpenAIProviderWithConfig(apiKey string, baseURL string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false)
}

// complete sends one chat completion request expecting a JSON object reply
// and returns the raw response content
func (p *OpenAIProvider) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion, promptPreview string) (string, error) {
	userIDStr := ExtractUserID(ctx)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.String("prompt_preview", SanitizePrompt(promptPreview, true)),
			zap.String("user_id", userIDStr),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("%s failed: %w", operation, apiErr)
		}
		return "", fmt.Errorf("%s failed: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// extractJSON trims non-JSON framing (markdown fences, prose) some models
// wrap around their reply and returns the outermost object
func extractJSON(content string) string {
	raw := strings.TrimSpace(content)
	if len(raw) > 0 && raw[0] == '{' {
		return raw
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

const interpretSystemPrompt = `You are the intent interpreter for a habit tracking assistant. ` +
	`You receive one user message plus the user's current habits, tags, learned facts and inferred routine patterns. ` +
	`Decide which actions the message asks for and respond with valid JSON only.`

// planEnvelope is the wire shape of an interpretation reply
type planEnvelope struct {
	Message string                `json:"message"`
	Actions []chat.ActionEnvelope `json:"actions"`
}

// Interpret turns a free-text message into a structured action plan
func (p *OpenAIProvider) Interpret(ctx context.Context, req *chat.InterpretRequest) (*chat.ActionPlan, error) {
	prompt := buildInterpretPrompt(req)

	var userMessage openai.ChatCompletionMessageParamUnion
	if len(req.Image) > 0 {
		dataURL := "data:" + req.ImageMIME + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
		userMessage = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	} else {
		userMessage = openai.UserMessage(prompt)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(interpretSystemPrompt),
		userMessage,
	}

	content, err := p.complete(ctx, "interpret", messages, prompt)
	if err != nil {
		return nil, err
	}

	plan, err := parsePlanResponse(content)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func parsePlanResponse(content string) (*chat.ActionPlan, error) {
	var envelope planEnvelope
	if err := json.Unmarshal([]byte(extractJSON(content)), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w", err)
	}

	plan := &chat.ActionPlan{Message: envelope.Message}
	for _, action := range envelope.Actions {
		plan.Actions = append(plan.Actions, action.Decode())
	}
	return plan, nil
}

// DetectConflict checks a proposed schedule against inferred routine patterns
func (p *OpenAIProvider) DetectConflict(ctx context.Context, schedule chat.ProposedSchedule, patterns []models.RoutinePattern) (*models.ScheduleConflict, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	prompt := buildConflictPrompt(schedule, patterns)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You assess whether a new habit schedule collides with a user's existing routine. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "detect_conflict", messages, prompt)
	if err != nil {
		return nil, err
	}

	return parseConflictResponse(content)
}

func parseConflictResponse(content string) (*models.ScheduleConflict, error) {
	var envelope struct {
		Conflict        bool     `json:"conflict"`
		Severity        string   `json:"severity"`
		CollidingHabits []string `json:"colliding_habits"`
		Recommendation  string   `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse conflict response: %w", err)
	}

	if !envelope.Conflict {
		return nil, nil
	}

	severity := models.ConflictSeverity(strings.ToUpper(envelope.Severity))
	switch severity {
	case models.ConflictSeverityHigh, models.ConflictSeverityMedium, models.ConflictSeverityLow:
	default:
		severity = models.ConflictSeverityLow
	}

	return &models.ScheduleConflict{
		Severity:        severity,
		CollidingHabits: envelope.CollidingHabits,
		Recommendation:  envelope.Recommendation,
	}, nil
}

// ExtractFacts proposes durable facts learned from one conversation turn
func (p *OpenAIProvider) ExtractFacts(ctx context.Context, userMessage, assistantReply string, known []*models.UserFact) ([]chat.FactCandidate, error) {
	prompt := buildFactsPrompt(userMessage, assistantReply, known)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You extract durable facts about a user from a conversation turn. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "extract_facts", messages, prompt)
	if err != nil {
		return nil, err
	}

	return parseFactsResponse(content)
}

func parseFactsResponse(content string) ([]chat.FactCandidate, error) {
	var envelope struct {
		Facts []struct {
			Text     string `json:"text"`
			Category string `json:"category"`
		} `json:"facts"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse facts response: %w", err)
	}

	candidates := make([]chat.FactCandidate, 0, len(envelope.Facts))
	for _, fact := range envelope.Facts {
		candidates = append(candidates, chat.FactCandidate{
			Text:     fact.Text,
			Category: models.FactCategory(strings.ToLower(fact.Category)),
		})
	}
	return candidates, nil
}

func describeHabit(habit *models.Habit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- id=%s title=%q", habit.ID, habit.Title)
	if habit.FrequencyUnit != nil {
		quantity := 1
		if habit.FrequencyQuantity != nil {
			quantity = *habit.FrequencyQuantity
		}
		fmt.Fprintf(&b, " frequency=%dx %s", quantity, *habit.FrequencyUnit)
	}
	if len(habit.DaysOfWeek) > 0 {
		days := make([]string, 0, len(habit.DaysOfWeek))
		for _, day := range habit.DaysOfWeek {
			days = append(days, day.String())
		}
		fmt.Fprintf(&b, " days=%s", strings.Join(days, ","))
	}
	if habit.ParentID != nil {
		fmt.Fprintf(&b, " parent=%s", *habit.ParentID)
	}
	if habit.IsBadHabit {
		b.WriteString(" (bad habit to avoid)")
	}
	return b.String()
}

func describePattern(pattern models.RoutinePattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %q usually logged in the %s", pattern.HabitTitle, pattern.TimeBucket)
	if len(pattern.Weekdays) > 0 {
		days := make([]string, 0, len(pattern.Weekdays))
		for _, day := range pattern.Weekdays {
			days = append(days, day.String())
		}
		fmt.Fprintf(&b, " on %s", strings.Join(days, ", "))
	}
	fmt.Fprintf(&b, " (%d recent logs)", pattern.Occurrences)
	return b.String()
}

// buildInterpretPrompt renders the user's message and context into the
// interpretation prompt, including the action schema the reply must follow
func buildInterpretPrompt(req *chat.InterpretRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current date: %s\n\n", time.Now().UTC().Format("2006-01-02"))

	if req.Message != "" {
		fmt.Fprintf(&b, "User message: %q\n", req.Message)
	} else {
		b.WriteString("User message: (none, image only)\n")
	}
	if len(req.Image) > 0 {
		b.WriteString("An image is attached; treat its contents as part of the message.\n")
	}

	if len(req.Habits) > 0 {
		b.WriteString("\nExisting habits:\n")
		for _, habit := range req.Habits {
			b.WriteString(describeHabit(habit))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nThe user has no habits yet.\n")
	}

	if len(req.Tags) > 0 {
		b.WriteString("\nExisting tags:\n")
		for _, tag := range req.Tags {
			fmt.Fprintf(&b, "- id=%s name=%q\n", tag.ID, tag.Name)
		}
	}

	if len(req.Facts) > 0 {
		b.WriteString("\nKnown facts about the user:\n")
		for _, fact := range req.Facts {
			fmt.Fprintf(&b, "- [%s] %s\n", fact.Category, fact.Text)
		}
	}

	if len(req.Patterns) > 0 {
		b.WriteString("\nInferred routine patterns:\n")
		for _, pattern := range req.Patterns {
			b.WriteString(describePattern(pattern))
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Respond with a JSON object in this format:
{
  "message": "conversational reply shown to the user",
  "actions": [ ... ]
}

Each action is one of:
- {"type": "log_habit", "habit_id": "<existing habit id>", "note": "optional note"}
- {"type": "create_habit", "title": "...", "description": "...", "frequency_unit": "daily"|"weekly"|"monthly", "frequency_quantity": 1, "days_of_week": ["monday", ...], "is_bad_habit": false, "due_date": "YYYY-MM-DD", "sub_habits": ["child title", ...]}
- {"type": "assign_tag", "habit_id": "<existing habit id>", "tag_ids": ["<existing tag id>", ...]}
- {"type": "suggest_breakdown", "title": "...", "suggestions": [{"title": "...", "description": "..."}, ...]}

Guidelines:
- Only reference habit and tag ids that appear in the lists above. Never invent ids.
- Use log_habit when the user reports having done something that matches an existing habit.
- Use create_habit when the user wants to start tracking something new. Omit fields the user did not specify.
- Use suggest_breakdown instead of create_habit when the user asks for help splitting a large goal; suggestions are proposals and create nothing.
- An empty actions array is valid when the message needs only a conversational reply.

Return only valid JSON.`)

	return b.String()
}

func buildConflictPrompt(schedule chat.ProposedSchedule, patterns []models.RoutinePattern) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Proposed habit: %q, %dx per %s", schedule.Title, schedule.FrequencyQuantity, schedule.FrequencyUnit)
	if len(schedule.DaysOfWeek) > 0 {
		days := make([]string, 0, len(schedule.DaysOfWeek))
		for _, day := range schedule.DaysOfWeek {
			days = append(days, day.String())
		}
		fmt.Fprintf(&b, " on %s", strings.Join(days, ", "))
	}
	b.WriteString("\n\nExisting routine patterns:\n")
	for _, pattern := range patterns {
		b.WriteString(describePattern(pattern))
		b.WriteString("\n")
	}

	b.WriteString(`
Does the proposed schedule collide with the existing routine? Respond with a JSON object:
{
  "conflict": true | false,
  "severity": "HIGH" | "MEDIUM" | "LOW",
  "colliding_habits": ["habit title", ...],
  "recommendation": "one short sentence suggesting an alternative slot"
}

Only report a conflict when the schedules plausibly compete for the same time. Return only valid JSON.`)

	return b.String()
}

func buildFactsPrompt(userMessage, assistantReply string, known []*models.UserFact) string {
	var b strings.Builder

	b.WriteString("Conversation turn:\n")
	fmt.Fprintf(&b, "user: %s\n", userMessage)
	fmt.Fprintf(&b, "assistant: %s\n", assistantReply)

	if len(known) > 0 {
		b.WriteString("\nFacts already known (do not repeat these):\n")
		for _, fact := range known {
			fmt.Fprintf(&b, "- [%s] %s\n", fact.Category, fact.Text)
		}
	}

	b.WriteString(`
Extract durable facts about the user worth remembering across conversations: stable preferences, recurring schedule constraints, long-term goals. Ignore one-off statements and anything already known.

Respond with a JSON object:
{
  "facts": [{"text": "...", "category": "preference" | "schedule" | "goal" | "constraint" | "other"}, ...]
}

An empty facts array is valid. Return only valid JSON.`)

	return b.String()
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (Provider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewOpenAIProviderWithConfig(apiKey, baseURL, model), nil
	})
}

var _ Provider = (*OpenAIProvider)(nil)
