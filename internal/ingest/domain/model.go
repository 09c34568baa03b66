package domain

// Batch is one month of externally authored menus for a single city.
type Batch struct {
	City     string `json:"city" yaml:"city"`
	Year     int    `json:"year" yaml:"year"`
	Month    int    `json:"month" yaml:"month"`
	Days     []Day  `json:"days" yaml:"days"`
	AuthorID string `json:"-" yaml:"-"`
}

type Day struct {
	Day       int   `json:"day" yaml:"day"`
	Breakfast *Meal `json:"breakfast,omitempty" yaml:"breakfast,omitempty"`
	Dinner    *Meal `json:"dinner,omitempty" yaml:"dinner,omitempty"`
}

type Meal struct {
	Dishes   []string `json:"dishes" yaml:"dishes"`
	Calories int      `json:"calories" yaml:"calories"`
}

// DishNames returns every dish name of the batch in document order, blanks included.
func (b Batch) DishNames() []string {
	var names []string
	for _, day := range b.Days {
		if day.Breakfast != nil {
			names = append(names, day.Breakfast.Dishes...)
		}
		if day.Dinner != nil {
			names = append(names, day.Dinner.Dishes...)
		}
	}
	return names
}

// Report summarizes one reconcile run. It is never persisted.
type Report struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	NewFoods []string `json:"new_foods"`
}
