package envconfig

import "testing"

func TestConfig(t *testing.T) {
	t.Setenv("LLAMA_SAMPLING_DEBUG", "")
	t.Setenv("LLAMA_SAMPLING_MODE", "")
	t.Setenv("LLAMA_SAMPLING_MAX_SESSIONS", "")
	LoadConfig()
	if Debug {
		t.Error("Debug should default to false")
	}
	if DefaultMode != "flexible" {
		t.Errorf("DefaultMode = %q, want flexible", DefaultMode)
	}
	if MaxSessions != 64 {
		t.Errorf("MaxSessions = %d, want 64", MaxSessions)
	}

	t.Setenv("LLAMA_SAMPLING_DEBUG", "1")
	t.Setenv("LLAMA_SAMPLING_MODE", "Strict")
	t.Setenv("LLAMA_SAMPLING_MAX_SESSIONS", "8")
	LoadConfig()
	if !Debug {
		t.Error("Debug should be true")
	}
	if DefaultMode != "strict" {
		t.Errorf("DefaultMode = %q, want strict", DefaultMode)
	}
	if MaxSessions != 8 {
		t.Errorf("MaxSessions = %d, want 8", MaxSessions)
	}

	t.Setenv("LLAMA_SAMPLING_MODE", "chaotic")
	t.Setenv("LLAMA_SAMPLING_MAX_SESSIONS", "-1")
	LoadConfig()
	if DefaultMode != "flexible" {
		t.Errorf("invalid mode kept: %q", DefaultMode)
	}
	if MaxSessions != 64 {
		t.Errorf("invalid max kept: %d", MaxSessions)
	}
}

func TestValues(t *testing.T) {
	t.Setenv("LLAMA_SAMPLING_HOST", "0.0.0.0:8080")
	t.Setenv("LLAMA_SAMPLING_MODE", "partial")
	LoadConfig()

	vals := Values()
	if vals["LLAMA_SAMPLING_HOST"] != "0.0.0.0:8080" {
		t.Errorf("host = %q", vals["LLAMA_SAMPLING_HOST"])
	}
	if vals["LLAMA_SAMPLING_MODE"] != "partial" {
		t.Errorf("mode = %q", vals["LLAMA_SAMPLING_MODE"])
	}

	for name, v := range AsMap() {
		if v.Name != name {
			t.Errorf("entry %q carries name %q", name, v.Name)
		}
		if v.Description == "" {
			t.Errorf("entry %q has no description", name)
		}
	}
}
