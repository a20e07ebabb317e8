package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
	"github.com/okian/ourabridge/internal/probe"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
)

// outcomeLabel colors an outcome by severity.
func outcomeLabel(s model.OutcomeStatus) string {
	switch s {
	case model.OutcomeOK, model.OutcomeStatic:
		return okColor.Sprint(s)
	case model.OutcomeEmpty, model.OutcomeDecodeError:
		return warnColor.Sprint(s)
	case "":
		return "-"
	default:
		return failColor.Sprint(s)
	}
}

// printOutcomes writes one row per resource in fetch order.
func printOutcomes(w io.Writer, outcomes map[model.Kind]model.Outcome) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Outcome", "Items", "Detail"})

	var data [][]string
	for _, kind := range model.Kinds() {
		o := outcomes[kind]
		data = append(data, []string{kind.String(), outcomeLabel(o.Status), fmt.Sprint(o.Items), o.Error})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// printSensors writes the sensor view of a snapshot.
func printSensors(w io.Writer, states []sensor.State, device sensor.Device) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Sensor", "Value", "Unit", "Available"})

	var data [][]string
	for _, st := range states {
		value, available := "-", failColor.Sprint("no")
		if st.Available {
			value, available = fmt.Sprint(st.Value), okColor.Sprint("yes")
		}
		data = append(data, []string{st.Name, value, st.Unit, available})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Device: %s (%s, %s)\n", device.Name, device.Model, device.Identifier)
	return err
}

// printReport writes probe results.
func printReport(w io.Writer, r probe.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Check", "Result", "Detail"})

	var data [][]string
	for _, c := range r.Checks {
		result := okColor.Sprint("pass")
		if !c.OK {
			result = failColor.Sprint("fail")
		}
		data = append(data, []string{c.Name, result, c.Detail})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	stale := ""
	if r.Stale {
		stale = warnColor.Sprint(" (stale)")
	}
	_, err := fmt.Fprintf(w, "Bridge %s, cycle %s%s, %d records\n", r.BaseURL, r.CycleID, stale, r.Records)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
