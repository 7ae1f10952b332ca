package core

import "prediagnosis/pkg"

// Task is a single information-gathering objective within a phase. The
// description feeds question generation; the name is a stable identifier.
type Task struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TaskCatalog is the static definition of interview phases and the ordered
// task set belonging to each. Tasks are fixed at construction and never
// created or destroyed at runtime.
type TaskCatalog struct {
	phases []pkg.Phase
	tasks  map[pkg.Phase][]Task
}

// NewCatalog builds a catalog from the given phase order and task sets.
// Phases must not include Done; it is always appended as the terminal phase.
func NewCatalog(phases []pkg.Phase, tasks map[pkg.Phase][]Task) *TaskCatalog {
	c := &TaskCatalog{
		phases: make([]pkg.Phase, len(phases)),
		tasks:  make(map[pkg.Phase][]Task, len(tasks)),
	}
	copy(c.phases, phases)
	for p, ts := range tasks {
		c.tasks[p] = append([]Task(nil), ts...)
	}
	return c
}

// DefaultCatalog returns the standard three-phase pre-diagnosis catalog.
func DefaultCatalog() *TaskCatalog {
	return NewCatalog(
		[]pkg.Phase{pkg.PhaseTriage, pkg.PhasePresentIllness, pkg.PhasePastHistory},
		map[pkg.Phase][]Task{
			pkg.PhaseTriage: {
				{Name: "primary_department", Description: "Determine the top-level department the patient should be referred to, based on the chief complaint and key symptoms."},
				{Name: "secondary_department", Description: "Determine the sub-department within the chosen top-level department, distinguishing it from neighbouring specialities."},
			},
			pkg.PhasePresentIllness: {
				{Name: "onset", Description: "Establish when and how the current illness started, and whether onset was sudden or gradual."},
				{Name: "symptom_character", Description: "Characterise the main symptom: location, quality, severity and timing."},
				{Name: "accompanying_symptoms", Description: "Identify symptoms accompanying the main complaint, including relevant negatives."},
				{Name: "progression", Description: "Trace how the symptoms have evolved since onset, including aggravating and relieving factors."},
				{Name: "care_sought", Description: "Record any prior visits, examinations or treatments for the current illness and their effect."},
			},
			pkg.PhasePastHistory: {
				{Name: "disease_history", Description: "Collect past diseases, chronic conditions and infectious disease history."},
				{Name: "allergies", Description: "Collect drug and food allergies, including the nature of past reactions."},
				{Name: "surgeries_medications", Description: "Collect past surgeries, hospitalisations and current long-term medications."},
			},
		},
	)
}

// Phases returns the substantive phases in visit order, excluding Done.
func (c *TaskCatalog) Phases() []pkg.Phase {
	out := make([]pkg.Phase, len(c.phases))
	copy(out, c.phases)
	return out
}

// Tasks returns the ordered task set for a phase. The returned slice is a
// copy; the catalog itself is immutable after construction.
func (c *TaskCatalog) Tasks(phase pkg.Phase) []Task {
	return append([]Task(nil), c.tasks[phase]...)
}

// HasPhase reports whether the phase carries tasks in this catalog.
func (c *TaskCatalog) HasPhase(phase pkg.Phase) bool {
	return len(c.tasks[phase]) > 0
}

// First returns the first declared task of a phase.
func (c *TaskCatalog) First(phase pkg.Phase) (Task, bool) {
	ts := c.tasks[phase]
	if len(ts) == 0 {
		return Task{}, false
	}
	return ts[0], true
}

// Find looks up a task of a phase by name.
func (c *TaskCatalog) Find(phase pkg.Phase, name string) (Task, bool) {
	for _, t := range c.tasks[phase] {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// FirstPhase returns the opening phase of the catalog, or Done when the
// catalog is empty.
func (c *TaskCatalog) FirstPhase() pkg.Phase {
	if len(c.phases) == 0 {
		return pkg.PhaseDone
	}
	return c.phases[0]
}

// NextPhase returns the phase following p in catalog order, or Done when p is
// the last substantive phase or unknown.
func (c *TaskCatalog) NextPhase(p pkg.Phase) pkg.Phase {
	for i, ph := range c.phases {
		if ph == p {
			if i+1 < len(c.phases) {
				return c.phases[i+1]
			}
			return pkg.PhaseDone
		}
	}
	return pkg.PhaseDone
}
