package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateMonthlyMenu(ctx context.Context, data MonthlyMenuData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, fmt.Sprintf("%s menu, %s %d", data.City, data.Month.String(), data.Year), props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Generated "+data.GeneratedAt.Format("2006-01-02 15:04"), props.Text{
			Size:  8,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(10,
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(5, "Breakfast", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(5, "Dinner", props.Text{Style: fontstyle.Bold, Size: 9}),
	)

	if len(data.Days) == 0 {
		m.AddRow(10,
			text.NewCol(12, "No published menus for this month.", props.Text{Size: 9, Style: fontstyle.Italic}),
		)
	}

	for _, day := range data.Days {
		m.AddRow(rowHeight(day),
			text.NewCol(2, day.Date.Format("Mon 02"), props.Text{Size: 9}),
			mealCol(day.Breakfast),
			mealCol(day.Dinner),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func mealCol(meal *Meal) core.Col {
	if meal == nil {
		return col.New(5).Add(text.New("-", props.Text{Size: 9}))
	}
	return col.New(5).Add(
		text.New(strings.Join(meal.Dishes, ", "), props.Text{Size: 9}),
		text.New(fmt.Sprintf("%d kcal", meal.Calories), props.Text{Size: 7, Top: 9, Style: fontstyle.Italic}),
	)
}

func rowHeight(day MenuDay) float64 {
	longest := 0
	for _, meal := range []*Meal{day.Breakfast, day.Dinner} {
		if meal == nil {
			continue
		}
		if n := len(strings.Join(meal.Dishes, ", ")); n > longest {
			longest = n
		}
	}
	// About 45 characters fit one line of a five-column cell at size 9.
	lines := longest/45 + 1
	return float64(8+lines*4) + 6
}
