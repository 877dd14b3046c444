package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func parseFormInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(r.FormValue(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return value, nil
}

func parseFormFloat(r *http.Request, name string) (float64, error) {
	value, err := strconv.ParseFloat(r.FormValue(name), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return value, nil
}

// parseFormDate accepts YYYY-MM-DD form values
func parseFormDate(r *http.Request, name string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", r.FormValue(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s", name)
	}
	return t, nil
}

// parseDateParam accepts YYYY-MM-DD query values
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s", name)
	}
	return t, nil
}
