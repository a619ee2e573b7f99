package postgres

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/id"
	"github.com/havencare/escrow/types"
)

func TestCaregiverModelMetadata(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	cg := &caregiver.Caregiver{
		Entity:        types.Entity{CreatedAt: now, UpdatedAt: now},
		AccountID:     "acct_1",
		Name:          "Maria",
		Email:         "maria@example.com",
		SubmissionRef: id.NewSubmissionID(),
		Metadata:      map[string]string{"referral": "flyer"},
	}

	m := toCaregiverModel(cg)

	// The column value must be JSON the pg driver can bind, not a Go map.
	var decoded map[string]string
	if err := json.Unmarshal(m.Metadata, &decoded); err != nil {
		t.Fatalf("metadata column is not valid JSON: %v", err)
	}

	got, err := fromCaregiverModel(m)
	if err != nil {
		t.Fatalf("fromCaregiverModel: %v", err)
	}
	if !reflect.DeepEqual(got.Metadata, cg.Metadata) {
		t.Errorf("metadata round-trip = %v, want %v", got.Metadata, cg.Metadata)
	}
	if got.SubmissionRef.String() != cg.SubmissionRef.String() {
		t.Errorf("submission ref round-trip = %q", got.SubmissionRef.String())
	}
}
