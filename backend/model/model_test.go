package model

import "testing"

func TestCatalog(t *testing.T) {
	for _, kind := range ProviderKinds() {
		if DefaultModel(kind) == "" {
			t.Errorf("provider %s has no default model", kind)
		}
		for _, m := range SupportedModels(kind) {
			if m.Provider != kind {
				t.Errorf("model %s listed under %s", m.Name, kind)
			}
			if m.Pricing.Input.IsNegative() || m.Pricing.Output.IsNegative() {
				t.Errorf("model %s has negative pricing", m.Name)
			}
		}
	}

	if got := DefaultModel(ProviderKindOpenAI); got != "gpt-4" {
		t.Errorf("DefaultModel(openai) = %q, want gpt-4", got)
	}
	if _, ok := LookupModel(ProviderKindAnthropic, "gpt-4"); ok {
		t.Error("LookupModel must not match across providers")
	}
	if _, err := ParseProviderKind("cohere"); err == nil {
		t.Error("ParseProviderKind(cohere) expected error")
	}
}
