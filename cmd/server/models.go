package main

import (
	"time"

	"github.com/liamcoop/typetour/posts"
	"github.com/liamcoop/typetour/rules"
	"github.com/liamcoop/typetour/union"
)

// CombineRequest carries two number-or-string operands
type CombineRequest struct {
	X union.Value `json:"x"`
	Y union.Value `json:"y"`
}

type CombineResponse struct {
	Result union.Value `json:"result"`
}

// EvaluateOrderResponse carries the portion message for an order.
// The request body is an ice cream or sundae order as decoded by dessert.DecodeOrder.
type EvaluateOrderResponse struct {
	Message string `json:"message"`
}

// PostSummaryResponse is the first post of the upstream endpoint
type PostSummaryResponse struct {
	ID     int      `json:"id"`
	Author string   `json:"author"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Lines  []string `json:"lines"`
}

func newPostSummary(p posts.Post) PostSummaryResponse {
	return PostSummaryResponse{
		ID:     p.ID,
		Author: p.Author(),
		Title:  p.Title,
		Body:   p.Body,
		Lines:  p.Lines(),
	}
}

// RuleRequest creates or updates a portion rule.
// On update, empty strings and nil pointers keep the stored value.
type RuleRequest struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Message   string `json:"message"`
	Priority  *int   `json:"priority,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

type RuleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Condition string    `json:"condition"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newRuleResponse(r *rules.Rule) RuleResponse {
	return RuleResponse{
		ID:        r.ID,
		Name:      r.Name,
		Condition: r.Condition,
		Message:   r.Message,
		Priority:  r.Priority,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type RulesListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Rules  int    `json:"rules"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
}
