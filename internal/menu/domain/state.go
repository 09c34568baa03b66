package domain

import "time"

// State is the lifecycle variant of a menu. Only Draft can change.
type State interface {
	Status() Status
	Content() (dishes []string, calories int)
}

type Draft struct {
	Dishes   []string
	Calories int
}

// Patch carries a partial edit. A nil field leaves the value unchanged.
type Patch struct {
	Dishes   []string
	Calories *int
}

func (d Draft) Status() Status { return StatusDraft }

func (d Draft) Content() ([]string, int) { return d.Dishes, d.Calories }

func (d Draft) Apply(p Patch) Draft {
	next := d
	if p.Dishes != nil {
		next.Dishes = append([]string(nil), p.Dishes...)
	}
	if p.Calories != nil {
		next.Calories = *p.Calories
	}
	return next
}

func (d Draft) Publish(at time.Time) Published {
	return Published{
		Dishes:      d.Dishes,
		Calories:    d.Calories,
		PublishedAt: at.UTC(),
	}
}

type Published struct {
	Dishes      []string
	Calories    int
	PublishedAt time.Time
}

func (p Published) Status() Status { return StatusPublished }

func (p Published) Content() ([]string, int) { return p.Dishes, p.Calories }

// State reconstructs the lifecycle variant from the stored row.
func (m *Menu) State() State {
	dishes := append([]string(nil), m.Dishes...)
	if m.Status == StatusPublished {
		published := Published{Dishes: dishes, Calories: m.Calories}
		if m.PublishedAt != nil {
			published.PublishedAt = m.PublishedAt.UTC()
		}
		return published
	}
	return Draft{Dishes: dishes, Calories: m.Calories}
}
