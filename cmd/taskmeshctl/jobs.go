package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// readPayload loads a job payload from either an inline --data flag or a
// --file path, validating it decodes as a JSON object before it is sent on
// (the handlers reject non-object bodies with a 400).
func readPayload(dataFlag, fileFlag string) ([]byte, error) {
	var raw []byte
	switch {
	case fileFlag != "":
		b, err := os.ReadFile(fileFlag)
		if err != nil {
			return nil, fmt.Errorf("read --file: %w", err)
		}
		raw = b
	case dataFlag != "":
		raw = []byte(dataFlag)
	default:
		return nil, fmt.Errorf("--data or --file required")
	}

	var probe map[string]interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return raw, nil
}

func newAnalyzeCmd() *cobra.Command {
	var dataFlag, fileFlag string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Submit an email for analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(dataFlag, fileFlag)
			if err != nil {
				return err
			}
			data, err := doPostJSON(apiFlag+"/api/v1/analyze", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataFlag, "data", "d", "", "Inline JSON payload")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to a JSON payload file")
	return cmd
}

func newAnalyzeSubjectsCmd() *cobra.Command {
	var dataFlag, fileFlag string
	cmd := &cobra.Command{
		Use:   "analyze-subjects",
		Short: "Submit a batch of email subjects for analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(dataFlag, fileFlag)
			if err != nil {
				return err
			}
			data, err := doPostJSON(apiFlag+"/api/v1/analyze/subjects", payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataFlag, "data", "d", "", `Inline JSON payload, e.g. {"subjects":["..."]}`)
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to a JSON payload file")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Get a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/v1/status/%s", apiFlag, args[0])
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results JOB_ID",
		Short: "Get a job's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/v1/results/%s", apiFlag, args[0])
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
}
