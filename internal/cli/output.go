package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/kxshrx/flynch/internal/domain"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatYML  = "yml"
)

// RenderRepositories renders a list of repository snapshots in the specified format
func RenderRepositories(repos []domain.Repository, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		return renderRepositoriesJSON(repos)
	case formatYAML, formatYML:
		return renderRepositoriesYAML(repos)
	case "csv":
		return renderRepositoriesCSV(repos)
	default:
		return renderRepositoriesTable(repos)
	}
}

// RenderUser renders a user profile in the specified format
func RenderUser(user *domain.User, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		return renderUserJSON(user)
	case formatYAML, formatYML:
		return renderUserYAML(user)
	default:
		return renderUserDetails(user)
	}
}

// Table rendering functions
func renderRepositoriesTable(repos []domain.Repository) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Language", "Stars", "Forks", "Description", "Pushed"})

	for _, repo := range repos {
		pushedAt := ""
		if repo.PushedAt != nil && !repo.PushedAt.IsZero() {
			pushedAt = repo.PushedAt.Format("2006-01-02")
		}

		description := repo.Description
		if len(description) > 50 {
			description = description[:47] + "..."
		}

		t.AppendRow(table.Row{
			repo.Name,
			repo.Language,
			repo.Stars,
			repo.Forks,
			description,
			pushedAt,
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func renderUserDetails(user *domain.User) error {
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email: %s\n", user.Email)
	if user.FullName != "" {
		fmt.Printf("Full name: %s\n", user.FullName)
	}
	if user.GithubUsername != "" {
		fmt.Printf("GitHub: %s\n", user.GithubUsername)
	}
	if !user.CreatedAt.IsZero() {
		fmt.Printf("Member since: %s\n", user.CreatedAt.Format("2006-01-02"))
	}
	if user.LastLogin != nil && !user.LastLogin.IsZero() {
		fmt.Printf("Last login: %s\n", user.LastLogin.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// JSON rendering functions
func renderRepositoriesJSON(repos []domain.Repository) error {
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}

func renderUserJSON(user *domain.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}

// YAML rendering functions
func renderRepositoriesYAML(repos []domain.Repository) error {
	data, err := yaml.Marshal(repos)
	if err != nil {
		return err
	}
	fmt.Printf("%s", data)
	return nil
}

func renderUserYAML(user *domain.User) error {
	data, err := yaml.Marshal(user)
	if err != nil {
		return err
	}
	fmt.Printf("%s", data)
	return nil
}

// CSV rendering functions
func renderRepositoriesCSV(repos []domain.Repository) error {
	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	// Header
	_ = writer.Write([]string{"Name", "FullName", "Language", "Stars", "Forks", "HasReadme", "Pushed", "Synced"})

	// Data
	for _, repo := range repos {
		pushedAt := ""
		if repo.PushedAt != nil && !repo.PushedAt.IsZero() {
			pushedAt = repo.PushedAt.Format(time.RFC3339)
		}

		fetchedAt := ""
		if !repo.FetchedAt.IsZero() {
			fetchedAt = repo.FetchedAt.Format(time.RFC3339)
		}

		_ = writer.Write([]string{
			repo.Name,
			repo.FullName,
			repo.Language,
			strconv.Itoa(repo.Stars),
			strconv.Itoa(repo.Forks),
			strconv.FormatBool(repo.HasReadme),
			pushedAt,
			fetchedAt,
		})
	}

	return nil
}

// Utility functions

// Success prints a success message with a checkmark
func Success(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Printf("⚠ "+format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Info prints an informational message
func Info(format string, args ...interface{}) {
	fmt.Printf("ℹ "+format+"\n", args...)
}
