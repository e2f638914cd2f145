package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run an eviction cycle now",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().post("/api/sweep", []byte("{}"))
		if err != nil {
			return err
		}
		var resp struct {
			Closed int `json:"closed"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		fmt.Printf("closed %d tab(s)\n", resp.Closed)
		return nil
	},
}

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer and apply workspaces now",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().post("/api/infer", []byte("{}"))
		if err != nil {
			return err
		}
		var resp struct {
			Workspaces int `json:"workspaces"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		fmt.Printf("applied %d workspace(s)\n", resp.Workspaces)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently closed tabs",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().get("/api/history")
		if err != nil {
			return err
		}
		var resp struct {
			History []struct {
				URL      string `json:"URL"`
				Title    string `json:"Title"`
				Reason   string `json:"Reason"`
				ClosedAt int64  `json:"ClosedAt"`
			} `json:"history"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(resp.History) == 0 {
			fmt.Println("no closed tabs recorded")
			return nil
		}
		for _, e := range resp.History {
			ts := time.UnixMilli(e.ClosedAt).Format("2006-01-02 15:04")
			fmt.Printf("%s  [%s]  %s  %s\n", ts, e.Reason, e.Title, e.URL)
		}
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent engine actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().get("/api/log")
		if err != nil {
			return err
		}
		var resp struct {
			Log []struct {
				Message   string `json:"Message"`
				CreatedAt int64  `json:"CreatedAt"`
			} `json:"log"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Log) == 0 {
			fmt.Println("log is empty")
			return nil
		}
		for _, e := range resp.Log {
			ts := time.UnixMilli(e.CreatedAt).Format("15:04:05")
			fmt.Printf("%s  %s\n", ts, e.Message)
		}
		return nil
	},
}
