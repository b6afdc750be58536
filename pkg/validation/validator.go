package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Boundary limits. The engine enforces its own configured session
	// limits; these are protocol sanity caps applied before any work runs.
	MaxIterationsPerRequest = 1_000_000
	MaxDimension            = 1e12
)

func init() {
	validate = validator.New()

	// "finite" rejects NaN and both infinities on float fields.
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// Struct validates v against its `validate` tags and converts the first
// failure into a readable error.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateDimensions rejects bounding boxes the simulation cannot work in:
// non-positive, NaN, infinite, or absurdly large extents.
func ValidateDimensions(width, height float64) error {
	if math.IsNaN(width) || math.IsInf(width, 0) {
		return fmt.Errorf("Width: must be finite, got %v", width)
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return fmt.Errorf("Height: must be finite, got %v", height)
	}
	if width <= 0 {
		return fmt.Errorf("Width: must be positive, got %v", width)
	}
	if height <= 0 {
		return fmt.Errorf("Height: must be positive, got %v", height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("Dimensions: %v x %v exceeds maximum extent %v", width, height, MaxDimension)
	}
	return nil
}

// ValidateComputeParams caps runaway iteration counts and rejects
// non-finite temperatures. Non-positive values are legal: zero iterations
// passes positions through, and a non-positive temperature freezes the
// graph.
func ValidateComputeParams(maxIterations int32, initialTemperature float64) error {
	if int(maxIterations) > MaxIterationsPerRequest {
		return fmt.Errorf("MaxIterations: %d exceeds per-request cap %d", maxIterations, MaxIterationsPerRequest)
	}
	if math.IsNaN(initialTemperature) || math.IsInf(initialTemperature, 0) {
		return fmt.Errorf("InitialTemperature: must be finite, got %v", initialTemperature)
	}
	return nil
}

// ValidateNodes sweeps node coordinates for NaN and infinities. Binary
// inputs are trusted to carry what the caller computed; this is for
// human-edited inputs where a bad float is likely a typo.
func ValidateNodes(nodes []layout.Node) error {
	for i, n := range nodes {
		if math.IsNaN(n.X) || math.IsInf(n.X, 0) || math.IsNaN(n.Y) || math.IsInf(n.Y, 0) {
			return fmt.Errorf("Nodes: node %d (id %d) has non-finite position (%v, %v)", i, n.ID, n.X, n.Y)
		}
	}
	return nil
}

// ValidateEdges rejects non-finite and negative intensities. Zero is legal
// and means "use the baseline intensity".
func ValidateEdges(edges []layout.Edge) error {
	for i, e := range edges {
		if math.IsNaN(e.Intensity) || math.IsInf(e.Intensity, 0) {
			return fmt.Errorf("Edges: edge %d (%d -> %d) has non-finite intensity %v", i, e.From, e.To, e.Intensity)
		}
		if e.Intensity < 0 {
			return fmt.Errorf("Edges: edge %d (%d -> %d) has negative intensity %v", i, e.From, e.To, e.Intensity)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "finite":
			return fmt.Errorf("%s: must be a finite number", field)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
