package sample

// Preset chain profiles for common editor scenarios. Parameter choices trade
// determinism against variety per scenario: naming is nearly greedy,
// documentation runs warm.

// CodeCompletionSpecs favors syntactically safe continuations.
func CodeCompletionSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties).With("last_n", 256).With("repeat", 1.15).With("freq", 0.1).With("present", 0),
		NewSpec(KindTopK).With("k", 20),
		NewSpec(KindTopP).With("p", 0.85).With("min_keep", 1),
		NewSpec(KindTemperature).With("temperature", 0.3),
	}
}

// JSONGenerationSpecs keeps output structured and repetition low.
func JSONGenerationSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties).With("last_n", 128).With("repeat", 1.05).With("freq", 0).With("present", 0),
		NewSpec(KindTopP).With("p", 0.9).With("min_keep", 1),
		NewSpec(KindTemperature).With("temperature", 0.2),
	}
}

// DocumentationSpecs allows more variety for prose.
func DocumentationSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties).With("last_n", 128).With("repeat", 1.1).With("freq", 0.05).With("present", 0),
		NewSpec(KindTopK).With("k", 50),
		NewSpec(KindTopP).With("p", 0.95).With("min_keep", 2),
		NewSpec(KindTemperature).With("temperature", 0.6),
	}
}

// NamingSpecs is highly deterministic for identifier suggestions.
func NamingSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties).With("last_n", 64).With("repeat", 1.2).With("freq", 0.2).With("present", 0),
		NewSpec(KindTopK).With("k", 10),
		NewSpec(KindTemperature).With("temperature", 0.1),
	}
}

// DebuggingSpecs is a balanced profile for debugging and refactoring.
func DebuggingSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties).With("last_n", 128).With("repeat", 1.1).With("freq", 0.1).With("present", 0),
		NewSpec(KindTopK).With("k", 30),
		NewSpec(KindTopP).With("p", 0.9).With("min_keep", 1),
		NewSpec(KindTemperature).With("temperature", 0.4),
	}
}

// GeneralSpecs is the fallback profile with stock parameters.
func GeneralSpecs() []Spec {
	return []Spec{
		NewSpec(KindPenalties),
		NewSpec(KindTopK),
		NewSpec(KindTopP),
		NewSpec(KindTemperature),
	}
}

// jsonStructureSpecs pins punctuation-heavy positions close to greedy.
func jsonStructureSpecs() []Spec {
	return []Spec{
		NewSpec(KindTopK).With("k", 5),
		NewSpec(KindTemperature).With("temperature", 0.1),
	}
}

// jsonContentSpecs loosens up for keys and literal values.
func jsonContentSpecs() []Spec {
	return []Spec{
		NewSpec(KindTopP).With("p", 0.8),
		NewSpec(KindTemperature).With("temperature", 0.3),
	}
}

// DefaultPresets maps each canonical context to its stock spec list.
func DefaultPresets() map[Context][]Spec {
	return map[Context][]Spec{
		ContextCodeCompletion: CodeCompletionSpecs(),
		ContextJSONGeneration: JSONGenerationSpecs(),
		ContextDocumentation:  DocumentationSpecs(),
		ContextVariableName:   NamingSpecs(),
		ContextFunctionName:   NamingSpecs(),
		ContextDebugging:      DebuggingSpecs(),
		ContextRefactoring:    DebuggingSpecs(),
		ContextGeneral:        GeneralSpecs(),
	}
}
