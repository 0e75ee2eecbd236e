package aggregate

import (
	"testing"

	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/reconcile"
)

func TestMapNilContract(t *testing.T) {
	if got := Map(nil, nil, nil); got != nil {
		t.Errorf("Expected nil for absent contract, got %+v", got)
	}
}

func TestMapAgentDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		contract model.Contract
		want     string
	}{
		{
			"full name with role",
			model.Contract{AgentFirstName: "Carla", AgentLastName: "Reyes", AgentRole: "Broker"},
			"Carla Reyes (Broker)",
		},
		{
			"first name only",
			model.Contract{AgentFirstName: "Carla"},
			"Carla",
		},
		{
			"role only",
			model.Contract{AgentRole: "Broker"},
			"Broker",
		},
		{
			"nothing",
			model.Contract{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Map(&tt.contract, nil, nil)
			if out.AgentName != tt.want {
				t.Errorf("Expected agent name %q, got %q", tt.want, out.AgentName)
			}
		})
	}
}

func TestMapNormalizesPaymentsAndMergesDocuments(t *testing.T) {
	raw := &model.Contract{
		ID:     "c1",
		Status: model.StatusInProcess,
		Payments: []model.Payment{
			{Amount: 500000, Date: "2025-03-01", Type: model.PaymentTypeRent},
		},
		Documents: []model.Document{
			{ID: "a", DocumentTypeID: "dt1"},
		},
	}
	serviceDocs := []reconcile.RawDocument{
		{ID: "a", DocumentTypeID: "dt1", MultimediaID: "m1"},
		{ID: "b", DocumentTypeID: "dt2"},
	}

	out := Map(raw, serviceDocs, nil)

	if out.Payments[0].Status != model.PaymentPending {
		t.Errorf("Expected normalized payment status PENDING, got %s", out.Payments[0].Status)
	}
	if out.Payments[0].Key() == "" {
		t.Error("Expected normalized payment to carry an identity")
	}
	if len(out.Documents) != 2 {
		t.Fatalf("Expected 2 reconciled documents, got %d", len(out.Documents))
	}
	if !out.Documents[0].Uploaded || out.Documents[0].MultimediaID != "m1" {
		t.Errorf("Expected enriched first document, got %+v", out.Documents[0])
	}

	// The raw contract is not mutated.
	if raw.Payments[0].Status != "" {
		t.Error("Expected Map to leave the raw contract untouched")
	}
}
