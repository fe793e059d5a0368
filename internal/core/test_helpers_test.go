package core

import (
	"context"
	"sync"
	"time"

	"plancore/internal/recommend"
	"plancore/pkg/domain"
	"plancore/pkg/inspection"
)

var fixtureCreatedAt = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type fakeInstanceRepo struct {
	instances map[string]inspection.Instance
}

func (f fakeInstanceRepo) FindInstance(_ context.Context, id string) (inspection.Instance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return inspection.Instance{}, domain.NotFoundError{Entity: "instance", ID: id}
	}
	return inst, nil
}

type fakeTemplateRepo struct {
	templates map[string]inspection.Template
}

func (f fakeTemplateRepo) FindTemplate(_ context.Context, id string) (inspection.Template, error) {
	tmpl, ok := f.templates[id]
	if !ok {
		return inspection.Template{}, domain.NotFoundError{Entity: "template", ID: id}
	}
	return tmpl, nil
}

type stubRecommender struct {
	mu       sync.Mutex
	requests []recommend.Request
	response recommend.Response
	err      error
}

func (s *stubRecommender) Recommend(_ context.Context, req recommend.Request) (recommend.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return recommend.Response{}, s.err
	}
	return s.response, nil
}

type captureFeedbackQueue struct {
	mu       sync.Mutex
	payloads []recommend.FeedbackPayload
}

func (c *captureFeedbackQueue) Enqueue(payload recommend.FeedbackPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *captureFeedbackQueue) received() []recommend.FeedbackPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recommend.FeedbackPayload(nil), c.payloads...)
}

// fixtureTemplate nests a grouping node over two leaf sections whose titles
// drive the hazard classifier.
func fixtureTemplate() inspection.Template {
	return inspection.Template{
		ID: "tmpl-1",
		Sections: []inspection.TemplateSection{
			{
				ID:       "sec-root",
				Title:    "Seguridad Operacional",
				IsParent: true,
				Subsections: []inspection.TemplateSection{
					{ID: "sec-altura", Title: "Trabajos en Altura"},
					{ID: "sec-orden", Title: "Orden y Limpieza de Áreas"},
				},
			},
		},
	}
}

// fixtureInstance answers four questions: one eligible by default policy, one
// score-3 with comment, one not applicable, one sub-compliant without comment.
func fixtureInstance() inspection.Instance {
	return inspection.Instance{
		ID:         "inst-1",
		TemplateID: "tmpl-1",
		CreatedAt:  fixtureCreatedAt,
		VerificationList: map[string]string{
			"vicepresidencia":  "VP Operaciones",
			"superintendencia": "Superintendencia Mina",
			"área física":      "Chancado Primario",
			"empresa":          "Contratista Andina",
			"supervisor":       "J. Mamani",
			"lugar":            "Nivel 3800",
		},
		Sections: []inspection.InstanceSection{
			{
				SectionID: "sec-altura",
				Questions: []inspection.InstanceQuestion{
					{QuestionText: "¿Arnés inspeccionado?", Response: "0", Comment: "Arnés con costuras dañadas"},
					{QuestionText: "¿Línea de vida certificada?", Response: "3", Comment: "Certificado por vencer"},
				},
			},
			{
				SectionID: "sec-orden",
				Questions: []inspection.InstanceQuestion{
					{QuestionText: "¿Área libre de obstáculos?", Response: "N/A"},
					{QuestionText: "¿Residuos segregados?", Response: "1"},
				},
			},
		},
	}
}

func newFixtureService(opts ...ServiceOption) *Service {
	base := []ServiceOption{
		WithInstanceRepository(fakeInstanceRepo{instances: map[string]inspection.Instance{"inst-1": fixtureInstance()}}),
		WithTemplateRepository(fakeTemplateRepo{templates: map[string]inspection.Template{"tmpl-1": fixtureTemplate()}}),
	}
	return NewInMemoryService(nil, append(base, opts...)...)
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func statePtr(s domain.TaskState) *domain.TaskState { return &s }
