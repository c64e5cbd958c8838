package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-diary/internal/common"
)

var validate = validator.New()

// dateQuery holds the single-date query parameter.
type dateQuery struct {
	Date string `query:"date" validate:"required,datetime=2006-01-02"`
}

// rangeQuery holds the query parameters of the range endpoint.
type rangeQuery struct {
	StartDate string `query:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"required,datetime=2006-01-02"`
}

// dateRange is a parsed rangeQuery; End may not precede Start.
type dateRange struct {
	Start time.Time
	End   time.Time `validate:"gtefield=Start"`
}

// parseDateQuery validates the date parameter and returns the parsed date.
func parseDateQuery(c *fiber.Ctx) (common.Date, error) {
	q := dateQuery{Date: c.Query("date")}
	if err := validate.Struct(q); err != nil {
		return common.Date{}, validationError(err, map[string]string{"Date": "date"})
	}
	return common.ParseDate(q.Date)
}

// parseRangeQuery validates both range parameters and their order.
func parseRangeQuery(c *fiber.Ctx) (start, end common.Date, err error) {
	q := rangeQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	names := map[string]string{"StartDate": "startDate", "EndDate": "endDate"}
	if err := validate.Struct(q); err != nil {
		return start, end, validationError(err, names)
	}

	if start, err = common.ParseDate(q.StartDate); err != nil {
		return start, end, err
	}
	if end, err = common.ParseDate(q.EndDate); err != nil {
		return start, end, err
	}

	r := dateRange{Start: start.Time, End: end.Time}
	if err := validate.Struct(r); err != nil {
		return start, end, fmt.Errorf("startDate %s is after endDate %s", start, end)
	}
	return start, end, nil
}

// validationError turns validator output into a message naming the query parameter.
func validationError(err error, names map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	name := names[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s query parameter is required", name)
	case "datetime":
		return fmt.Errorf("%s must be an ISO-8601 date (YYYY-MM-DD), got %q", name, fe.Value())
	default:
		return fmt.Errorf("%s is invalid", name)
	}
}
