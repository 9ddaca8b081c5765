// Package model is the storage representation of native conversation turns.
package model

import "google.golang.org/genai"

// FunctionCall is a function invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty" bson:"id,omitempty"`
	Name string         `json:"name" bson:"name"`
	Args map[string]any `json:"args,omitempty" bson:"args,omitempty"`
}

// FunctionResponse carries the result of a function invocation back to the model.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty" bson:"id,omitempty"`
	Name     string         `json:"name" bson:"name"`
	Response map[string]any `json:"response,omitempty" bson:"response,omitempty"`
}

// Part is a single piece of a turn. Exactly one field is set.
type Part struct {
	Text             string            `json:"text,omitempty" bson:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty" bson:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty" bson:"function_response,omitempty"`
}

// Content is one turn of a thread.
type Content struct {
	Role  string `json:"role" bson:"role"`
	Parts []Part `json:"parts" bson:"parts"`
}

// FromGenAI converts native contents to their storage form. Nil entries are skipped.
func FromGenAI(contents []*genai.Content) []Content {
	result := make([]Content, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		mc := Content{Role: c.Role, Parts: make([]Part, 0, len(c.Parts))}
		for _, p := range c.Parts {
			if p == nil {
				continue
			}
			mp := Part{Text: p.Text}
			if p.FunctionCall != nil {
				mp.FunctionCall = &FunctionCall{
					ID:   p.FunctionCall.ID,
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				}
			}
			if p.FunctionResponse != nil {
				mp.FunctionResponse = &FunctionResponse{
					ID:       p.FunctionResponse.ID,
					Name:     p.FunctionResponse.Name,
					Response: p.FunctionResponse.Response,
				}
			}
			mc.Parts = append(mc.Parts, mp)
		}
		result = append(result, mc)
	}
	return result
}
