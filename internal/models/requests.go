package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringList accepts either a single JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("must be a string or an array of strings")
	}
	*l = list
	return nil
}

// VisualizeRequest is the body of POST /api/visualize
type VisualizeRequest struct {
	Data      json.RawMessage `json:"data"`
	ChartType string          `json:"chartType"`
	Column    string          `json:"column,omitempty"`
	XColumn   string          `json:"xColumn,omitempty"`
	YColumn   string          `json:"yColumn,omitempty"`
	Columns   []string        `json:"columns,omitempty" validate:"omitempty,dive,required"`
	Values    []float64       `json:"values,omitempty"`
	Labels    []string        `json:"labels,omitempty"`
}

// RegressionRequest is the body of POST /api/regression
type RegressionRequest struct {
	Data     json.RawMessage `json:"data"`
	XColumns StringList      `json:"xColumns" validate:"required,min=1,dive,required"`
	YColumn  string          `json:"yColumn" validate:"required"`
}

// TimeSeriesRequest is the body of POST /api/time_series
type TimeSeriesRequest struct {
	Data      json.RawMessage `json:"data"`
	Column    string          `json:"column" validate:"required"`
	Periods   *int            `json:"periods,omitempty"`
	Decompose *bool           `json:"decompose,omitempty"`
}

// PeriodsOrDefault returns the requested horizon, 1 when omitted.
func (r *TimeSeriesRequest) PeriodsOrDefault() int {
	if r.Periods == nil {
		return 1
	}
	return *r.Periods
}

// GroupAggregateRequest is the body of POST /api/group_aggregate
type GroupAggregateRequest struct {
	Data      json.RawMessage `json:"data"`
	GroupBy   StringList      `json:"groupBy" validate:"required,min=1,dive,required"`
	AggColumn string          `json:"aggColumn" validate:"required"`
	AggFunc   string          `json:"aggFunc" validate:"required"`
}

// PreprocessRequest is the body of POST /api/preprocess
type PreprocessRequest struct {
	Data    json.RawMessage `json:"data"`
	Method  string          `json:"method" validate:"required"`
	Columns StringList      `json:"columns" validate:"required,min=1,dive,required"`
}

// LoginRequest is the body of POST /api/login. Missing credentials are not a
// validation error; they fail the credential check like wrong ones.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DBImportRequest is the body of POST /api/db/import
type DBImportRequest struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	User     string `json:"user" validate:"required"`
	Password string `json:"password"`
	DBName   string `json:"dbname" validate:"required"`
	SSLMode  string `json:"sslmode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Table    string `json:"table" validate:"required"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1"`
}
