package transform

import (
	"encoding/json"
	"fmt"
)

// Learner profile field values, matching the onboarding questionnaire.
const (
	ExperienceBeginner     = "Beginner"
	ExperienceIntermediate = "Intermediate"
	ExperienceAdvanced     = "Advanced"

	RoboticsNone       = "None"
	RoboticsSimulation = "Simulation"
	RoboticsHardware   = "Hardware"

	HardwareNone      = "None"
	HardwareJetsonKit = "Jetson Kit"
	HardwareCloud     = "Cloud"
)

// Profile is the closed set of learner signals that parametrize
// personalization. It is deliberately a record with named fields rather than
// an open map, so the variant hash is well-defined and exhaustive.
type Profile struct {
	ProgrammingExperience string `json:"programming_experience"`
	RoboticsExperience    string `json:"robotics_experience"`
	HardwareAvailability  string `json:"hardware_availability"`
}

// withDefaults fills unset fields with the questionnaire defaults so that
// a partially-filled profile hashes the same as its explicit equivalent.
func (p Profile) withDefaults() Profile {
	if p.ProgrammingExperience == "" {
		p.ProgrammingExperience = ExperienceIntermediate
	}
	if p.RoboticsExperience == "" {
		p.RoboticsExperience = RoboticsNone
	}
	if p.HardwareAvailability == "" {
		p.HardwareAvailability = HardwareNone
	}
	return p
}

// Canonical returns the sorted-key JSON encoding of the profile, the input to
// the variant hash. json.Marshal on a map sorts keys, which makes the
// encoding independent of field declaration order.
func (p Profile) Canonical() string {
	d := p.withDefaults()
	data, err := json.Marshal(map[string]string{
		"hardware_availability":  d.HardwareAvailability,
		"programming_experience": d.ProgrammingExperience,
		"robotics_experience":    d.RoboticsExperience,
	})
	if err != nil {
		// Marshaling a map[string]string cannot fail.
		panic(fmt.Sprintf("canonicalizing profile: %v", err))
	}
	return string(data)
}

// Transformations returns the directive names the prompt builder applies for
// this profile, in a fixed order.
func (p Profile) Transformations() []string {
	d := p.withDefaults()
	var ts []string

	switch d.ProgrammingExperience {
	case ExperienceBeginner:
		ts = append(ts, "beginner-simplify", "add-code-comments")
	case ExperienceAdvanced:
		ts = append(ts, "advanced-depth", "add-optimizations")
	}

	switch d.RoboticsExperience {
	case RoboticsNone:
		ts = append(ts, "add-context", "add-visual-aids")
	case RoboticsHardware:
		ts = append(ts, "practical-tips", "debugging-guides")
	}

	switch d.HardwareAvailability {
	case HardwareJetsonKit:
		ts = append(ts, "jetson-specific")
	case HardwareCloud:
		ts = append(ts, "cloud-deployment")
	case HardwareNone:
		ts = append(ts, "simulator-alternatives")
	}

	return ts
}

// VariantID formats the public identifier of a personalized variant.
// Variants are scoped by profile hash, not user, so learners with identical
// profiles share one variant.
func VariantID(contentID, variantHash string) string {
	short := variantHash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-v1-%s", contentID, short)
}
