// Package catalog holds the activities users can complete.
package catalog

import (
	"fmt"
	"sort"
)

// Activity is one completable activity. Points is trusted verbatim by scoring.
type Activity struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Type        string `json:"type"`
	IsActive    bool   `json:"is_active"`
}

// Catalog is a read-only set of activities keyed by id.
type Catalog struct {
	byID map[int]Activity
}

// New builds a catalog. Later entries replace earlier ones with the same id.
func New(activities ...Activity) *Catalog {
	c := &Catalog{byID: make(map[int]Activity, len(activities))}
	for _, a := range activities {
		c.byID[a.ID] = a
	}
	return c
}

// Get returns an active activity.
func (c *Catalog) Get(id int) (Activity, error) {
	a, ok := c.byID[id]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %d", ErrActivityNotFound, id)
	}
	if !a.IsActive {
		return Activity{}, fmt.Errorf("%w: %d", ErrActivityInactive, id)
	}
	return a, nil
}

// List returns every activity ordered by id.
func (c *Catalog) List() []Activity {
	out := make([]Activity, 0, len(c.byID))
	for _, a := range c.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Defaults returns the built-in activities.
func Defaults() []Activity {
	return []Activity{
		{ID: 1, Title: "Quiz de Matemáticas", Description: "Resuelve problemas de álgebra", Points: 50, Type: "quiz", IsActive: true},
		{ID: 2, Title: "Evento de Ciencia", Description: "Participa en la feria de ciencias", Points: 100, Type: "event", IsActive: true},
		{ID: 3, Title: "Interacción Diaria", Description: "Conversa con el asistente", Points: 25, Type: "interaction", IsActive: true},
	}
}
