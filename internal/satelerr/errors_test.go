package satelerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDataUnavailableErrorMatching(t *testing.T) {
	err := fmt.Errorf("pipeline year 2021: %w", &DataUnavailableError{Region: "shusha", Year: 2021, Reason: "0 scenes under cloud ceiling"})

	if !errors.Is(err, ErrDataUnavailable) {
		t.Error("wrapped DataUnavailableError should match ErrDataUnavailable")
	}

	var de *DataUnavailableError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should find DataUnavailableError")
	}
	if de.Year != 2021 {
		t.Errorf("Year = %d, want 2021", de.Year)
	}
	if !strings.Contains(err.Error(), "0 scenes") {
		t.Errorf("error text should carry the reason, got %q", err.Error())
	}
}

func TestClassifierUnavailableErrorMatching(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := &ClassifierUnavailableError{Year: 2024, Cause: cause}

	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Error("ClassifierUnavailableError should match ErrClassifierUnavailable")
	}
	if !strings.Contains(err.Error(), "2024") {
		t.Errorf("error text should name the year, got %q", err.Error())
	}
}

func TestGridMismatchErrorMatching(t *testing.T) {
	err := &GridMismatchError{Want: "120x80 @ 10m", Got: "60x40 @ 20m"}

	if !errors.Is(err, ErrGridMismatch) {
		t.Error("GridMismatchError should match ErrGridMismatch")
	}
	if errors.Is(err, ErrDataUnavailable) {
		t.Error("GridMismatchError should not match ErrDataUnavailable")
	}
	if !strings.Contains(err.Error(), "120x80") || !strings.Contains(err.Error(), "60x40") {
		t.Errorf("error text should carry both grids, got %q", err.Error())
	}
}
