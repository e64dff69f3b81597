package store

import (
	"fmt"

	"github.com/banshee-data/motionscript/internal/calibration"
	"github.com/banshee-data/motionscript/internal/stabilize"
)

// SaveCalibration stores a calibration set under name.
func (s *Store) SaveCalibration(name string, set calibration.Set) error {
	return s.putDoc("calibrations", name, set.ToMap())
}

// LoadCalibration returns the named set. Axes missing from the stored
// document take their defaults.
func (s *Store) LoadCalibration(name string) (calibration.Set, error) {
	m, err := s.getDoc("calibrations", name)
	if err != nil {
		return calibration.Set{}, err
	}
	set, err := calibration.SetFromMap(m)
	if err != nil {
		return calibration.Set{}, fmt.Errorf("load calibration %q: %w", name, err)
	}
	return set, nil
}

func (s *Store) Calibrations() ([]string, error) { return s.listNames("calibrations") }

// SaveStabilization stores the preset and per-axis configs of m.
func (s *Store) SaveStabilization(name string, m *stabilize.Manager) error {
	return s.putDoc("stabilization_configs", name, m.ConfigsToMap())
}

// LoadStabilization applies the named configs to m.
func (s *Store) LoadStabilization(name string, m *stabilize.Manager) error {
	doc, err := s.getDoc("stabilization_configs", name)
	if err != nil {
		return err
	}
	if err := m.LoadConfigsFromMap(doc); err != nil {
		return fmt.Errorf("load stabilization %q: %w", name, err)
	}
	return nil
}

func (s *Store) StabilizationConfigs() ([]string, error) {
	return s.listNames("stabilization_configs")
}
