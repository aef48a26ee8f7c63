package tutor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"lingotutor.io/smart-tutor/internal/apperr"
)

type Intent string

const (
	IntentTranslation Intent = "translation"
	IntentVocabulary  Intent = "vocabulary"
	IntentGeneral     Intent = "general"
	IntentOutOfDomain Intent = "out_of_domain"
)

// routedIntents must each have a specialist.
var routedIntents = []Intent{IntentTranslation, IntentVocabulary, IntentGeneral}

const codeClassificationFailed = "classification_failed"

// routerHistory is how many recent turns the classifier sees.
const routerHistory = 4

var routeSchema = &Schema{
	Type: SchemaObject,
	Properties: map[string]*Schema{
		"intent": enumField("Which specialist should answer.",
			string(IntentTranslation), string(IntentVocabulary), string(IntentGeneral), string(IntentOutOfDomain)),
		"decline": stringField("Redirect message for out_of_domain, otherwise empty."),
	},
	Required: []string{"intent"},
}

type Classification struct {
	Intent  Intent `json:"intent"`
	Decline string `json:"decline"`
}

type Router struct {
	gen         Generator
	prompts     *Prompts
	specialists map[Intent]Specialist
	logger      *zap.Logger
}

func NewRouter(gen Generator, prompts *Prompts, specialists map[Intent]Specialist, logger *zap.Logger) (*Router, error) {
	table := make(map[Intent]Specialist, len(routedIntents))
	for _, intent := range routedIntents {
		s, ok := specialists[intent]
		if !ok || s == nil {
			return nil, fmt.Errorf("no specialist registered for intent %q", intent)
		}
		table[intent] = s
	}
	return &Router{gen: gen, prompts: prompts, specialists: table, logger: logger.Named("router")}, nil
}

// Classify asks the model for the intent of the turn's message.
func (r *Router) Classify(ctx context.Context, turn Turn) (Classification, error) {
	history := turn.History
	if len(history) > routerHistory {
		history = history[len(history)-routerHistory:]
	}
	req, err := r.prompts.Router.Request(PromptData{
		TargetLanguage: turn.Profile.TargetLanguage,
		Message:        turn.Message,
	}, history, routeSchema)
	if err != nil {
		return Classification{}, err
	}

	raw, err := r.gen.Generate(ctx, req)
	if err != nil {
		return Classification{}, fmt.Errorf("classification call failed: %w", err)
	}
	var c Classification
	if err := DecodeJSON(raw, &c); err != nil {
		return Classification{}, err
	}
	c.Intent = Intent(strings.ToLower(strings.TrimSpace(string(c.Intent))))
	if _, ok := r.specialists[c.Intent]; !ok && c.Intent != IntentOutOfDomain {
		return Classification{}, fmt.Errorf("model returned unknown intent %q", c.Intent)
	}
	return c, nil
}

// Route validates the turn, classifies it and hands it to one specialist.
// The only error it returns is a validation error for empty input; model
// failures come back as error drafts.
func (r *Router) Route(ctx context.Context, turn Turn) (Draft, error) {
	turn.Message = strings.TrimSpace(turn.Message)
	if turn.Message == "" {
		return Draft{}, apperr.Validation("message cannot be empty")
	}

	c, err := r.Classify(ctx, turn)
	if err != nil {
		r.logger.Error("classification failed", zap.String("user_id", turn.UserID), zap.Error(err))
		return final(NewError(r.prompts.Unavailable(), codeClassificationFailed)), nil
	}

	r.logger.Debug("message routed", zap.String("user_id", turn.UserID), zap.String("intent", string(c.Intent)))
	if c.Intent == IntentOutOfDomain {
		decline := strings.TrimSpace(c.Decline)
		if decline == "" {
			decline = r.prompts.Decline(turn.Profile)
		}
		return final(NewText(decline)), nil
	}
	return r.specialists[c.Intent].Handle(ctx, turn), nil
}
