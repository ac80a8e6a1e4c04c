package randomization

import (
	"errors"
	"fmt"
	"testing"
)

func validScheme() *Scheme {
	s := &Scheme{
		StudyID: 7,
		Name:    "Primary",
		Arms:    []ArmRatio{{ArmID: "A", Weight: 1}, {ArmID: "B", Weight: 1}},
	}
	s.ApplyDefaults()
	return s
}

func TestApplyDefaults(t *testing.T) {
	s := validScheme()
	if s.BlockSize != 4 || s.TotalSlots != 100 || s.BlindingLevel != DoubleBlind {
		t.Fatalf("defaults: got blockSize=%d totalSlots=%d blinding=%s", s.BlockSize, s.TotalSlots, s.BlindingLevel)
	}
	if s.Status != StatusDraft || s.IsActive() || s.IsLocked() {
		t.Fatalf("new scheme must be an inactive draft, got %s", s.Status)
	}
	if s.RandomizationType != TypeBlock || s.SlotPolicy != SlotsPerStratum {
		t.Fatalf("defaults: type=%s policy=%s", s.RandomizationType, s.SlotPolicy)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Scheme){
		"missing name":         func(s *Scheme) { s.Name = " " },
		"missing study":        func(s *Scheme) { s.StudyID = 0 },
		"one arm":              func(s *Scheme) { s.Arms = s.Arms[:1] },
		"duplicate arm":        func(s *Scheme) { s.Arms[1].ArmID = "A" },
		"zero weight":          func(s *Scheme) { s.Arms[0].Weight = 0 },
		"stratified no factor": func(s *Scheme) { s.RandomizationType = TypeStratified },
		"site without factor":  func(s *Scheme) { s.SiteSpecific = true },
		"varied without list":  func(s *Scheme) { s.BlockSizeVaried = true },
		"oversize block":       func(s *Scheme) { s.BlockSize = 2_000_000_000 },
		"oversize list entry":  func(s *Scheme) { s.BlockSizes = []int{4, MaxBlockSize + 1} },
		"oversize weight":      func(s *Scheme) { s.Arms[0].Weight = MaxArmWeight + 1 },
		"factor without values": func(s *Scheme) {
			s.Factors = []StratificationFactor{{Name: "sex"}}
		},
		"reserved char": func(s *Scheme) {
			s.Factors = []StratificationFactor{{Name: "a|b", Values: []string{"x"}}}
		},
	}
	for name, mutate := range cases {
		s := validScheme()
		mutate(s)
		err := s.Validate("test")
		if !IsCode(err, CodeValidation) {
			t.Fatalf("%s: want validation_error, got %v", name, err)
		}
	}
	if err := validScheme().Validate("test"); err != nil {
		t.Fatalf("valid scheme rejected: %v", err)
	}
}

func TestSchemeTransitions(t *testing.T) {
	s := validScheme()
	s.ID = 3

	if _, err := s.Next("activate", EventActivate); !IsCode(err, CodeNoList) {
		t.Fatalf("activate draft: want no_list, got %v", err)
	}
	next, err := s.Next("generate", EventGenerate)
	if err != nil || next != StatusGenerated {
		t.Fatalf("generate draft: got %s, %v", next, err)
	}
	s.Status = next
	if next, _ = s.Next("edit", EventEdit); next != StatusDraft {
		t.Fatalf("edit generated: want draft, got %s", next)
	}
	if next, _ = s.Next("activate", EventActivate); next != StatusActive {
		t.Fatalf("activate generated: want active, got %s", next)
	}
	s.Status = StatusActive
	for _, ev := range []SchemeEvent{EventEdit, EventGenerate, EventActivate} {
		if _, err := s.Next("x", ev); !IsCode(err, CodeLocked) {
			t.Fatalf("%s on active: want locked, got %v", ev, err)
		}
	}
}

func TestStratumKey(t *testing.T) {
	factors := []StratificationFactor{
		{Name: "sex", Values: []string{"F", "M"}},
		{Name: "site", Values: []string{"01", "02"}},
	}
	key, err := StratumKey("claim", factors, map[string]string{"site": "02", "sex": "F", "age": "40"})
	if err != nil {
		t.Fatalf("StratumKey: %v", err)
	}
	if key != "sex=F|site=02" {
		t.Fatalf("key: got %q", key)
	}
	if _, err := StratumKey("claim", factors, map[string]string{"sex": "F"}); !IsCode(err, CodeValidation) {
		t.Fatalf("missing factor: want validation_error, got %v", err)
	}
	if _, err := StratumKey("claim", factors, map[string]string{"sex": "X", "site": "01"}); !IsCode(err, CodeValidation) {
		t.Fatalf("undeclared value: want validation_error, got %v", err)
	}
	if key, _ := StratumKey("claim", nil, map[string]string{"sex": "F"}); key != DefaultStratumKey {
		t.Fatalf("no factors: got %q", key)
	}
}

func TestErrorCodesSurviveWrapping(t *testing.T) {
	base := ExhaustedError("claim", "default")
	wrapped := fmt.Errorf("outer: %w", base)
	if CodeOf(wrapped) != CodeExhausted {
		t.Fatalf("CodeOf: got %q", CodeOf(wrapped))
	}
	if !IsBusinessOutcome(wrapped) {
		t.Fatalf("exhausted must be a business outcome")
	}
	if IsBusinessOutcome(errors.New("connection refused")) {
		t.Fatalf("plain errors are infrastructure faults")
	}
	if IsBusinessOutcome(NewError(CodeInternal, "x", "boom", nil)) {
		t.Fatalf("internal is not a business outcome")
	}
	if MessageOf(base) != "No available randomization slots (stratum default)" {
		t.Fatalf("message: got %q", MessageOf(base))
	}
}

func TestNumberPrefix(t *testing.T) {
	s := validScheme()
	if s.NumberPrefix() != "RND" {
		t.Fatalf("prefix: got %q", s.NumberPrefix())
	}
	s.DrugKitManagement = true
	s.ApplyDefaults()
	if s.NumberPrefix() != "KIT" {
		t.Fatalf("drug kit prefix: got %q", s.NumberPrefix())
	}
}
