// Package spec parses declarative workflow documents from the spec store.
//
// A document looks like:
//
//	name: team.raw.events
//	owner: alice
//	team: data-platform
//	description: hourly raw event ingestion
//	schedule:
//	  cron: "0 * * * *"
//	  timezone: UTC
package spec

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidesys/dagmirror/pkg/domain"
	"gopkg.in/yaml.v3"
)

type specMarshall struct {
	Name        string `yaml:"name"`
	Owner       string `yaml:"owner"`
	Team        string `yaml:"team"`
	Description string `yaml:"description"`
	Schedule    struct {
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Parse validates a raw document into a WorkflowSpec.
//
// It never fails with an error value: malformed input is reported as
// validation errors. The returned spec is meaningful only when the error
// list is empty.
func Parse(raw []byte) (domain.WorkflowSpec, []domain.SpecValidationError) {
	var m specMarshall
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return domain.WorkflowSpec{}, []domain.SpecValidationError{
			{Message: fmt.Sprintf("not a yaml document: %s", err)},
		}
	}

	errs := []domain.SpecValidationError{}

	if m.Name == "" {
		errs = append(errs, domain.SpecValidationError{
			Field: "name", Message: "required",
		})
	}

	if m.Schedule.Cron != "" {
		if _, err := cronParser.Parse(m.Schedule.Cron); err != nil {
			errs = append(errs, domain.SpecValidationError{
				Field:   "schedule.cron",
				Message: fmt.Sprintf("not a cron expression: %s", err),
			})
		}
	}

	if m.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(m.Schedule.Timezone); err != nil {
			errs = append(errs, domain.SpecValidationError{
				Field:   "schedule.timezone",
				Message: fmt.Sprintf("unknown timezone: %s", err),
			})
		}
	}

	if 0 < len(errs) {
		return domain.WorkflowSpec{}, errs
	}

	return domain.WorkflowSpec{
		Name:             m.Name,
		Owner:            m.Owner,
		Team:             m.Team,
		Description:      m.Description,
		ScheduleCron:     m.Schedule.Cron,
		ScheduleTimezone: m.Schedule.Timezone,
	}, nil
}
