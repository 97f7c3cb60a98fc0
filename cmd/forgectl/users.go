package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/ini.v1"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/domain"
)

// userSeed is one account of a plain-text seed file
type userSeed struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Password  string
}

func newHashUsersCommand() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-users [seed-file] [users-file]",
		Short: "Hash a plain-text seed file into a users file",
		Long: `Reads accounts from a seed file with one section per email address
and writes the users file the server loads, with bcrypt-hashed passwords.
Accounts without a password get a generated one, printed once.

  [ada@example.com]
  first_name = Ada
  last_name  = Lovelace
  password   = correct-horse`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seedFile, usersFile := "./init-users.cfg", "./users.cfg"
			if len(args) > 0 {
				seedFile = args[0]
			}
			if len(args) > 1 {
				usersFile = args[1]
			}

			seeds, err := readUserSeeds(seedFile)
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}
			color.Cyan("Found %d user(s) in %s", len(seeds), seedFile)

			generated, err := writeUsersFile(seeds, usersFile, cost)
			if err != nil {
				return fmt.Errorf("failed to write users file: %w", err)
			}

			for _, s := range seeds {
				if password, ok := generated[s.Email]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.YellowString("Generated password for %s:", s.Email), password)
				}
			}
			color.Green("Wrote %s with bcrypt-hashed passwords", usersFile)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", auth.DefaultBcryptCost, "bcrypt cost")
	return cmd
}

// readUserSeeds parses the seed file. Every section is an email address.
func readUserSeeds(path string) ([]userSeed, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var seeds []userSeed
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			if len(section.Keys()) > 0 {
				return nil, fmt.Errorf("keys outside of a user section")
			}
			continue
		}

		email := strings.TrimSpace(section.Name())
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("invalid email section [%s]", email)
		}
		key := strings.ToLower(email)
		if seen[key] {
			return nil, fmt.Errorf("duplicate email %s", email)
		}
		seen[key] = true

		seeds = append(seeds, userSeed{
			ID:        uuid.New(),
			Email:     email,
			FirstName: section.Key("first_name").String(),
			LastName:  section.Key("last_name").String(),
			Password:  section.Key("password").String(),
		})
	}
	return seeds, nil
}

// writeUsersFile hashes every seed into path and returns the passwords it
// generated, keyed by email
func writeUsersFile(seeds []userSeed, path string, cost int) (map[string]string, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "# TestForge users\n")
	fmt.Fprintf(writer, "# Generated by forgectl hash-users\n")
	fmt.Fprintf(writer, "# Format: [user id] with email, first_name, last_name and a bcrypt password hash\n")

	generated := make(map[string]string)
	for _, seed := range seeds {
		password := seed.Password
		if password == "" {
			password, err = generatePassword()
			if err != nil {
				return nil, fmt.Errorf("failed to generate password for %s: %w", seed.Email, err)
			}
			generated[seed.Email] = password
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", seed.Email, err)
		}

		entry, err := auth.FormatUser(domain.User{
			ID:        seed.ID,
			Email:     seed.Email,
			FirstName: seed.FirstName,
			LastName:  seed.LastName,
		}, string(hash))
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(writer, "\n"); err != nil {
			return nil, err
		}
		if _, err := writer.Write(entry); err != nil {
			return nil, err
		}
	}

	if err := writer.Flush(); err != nil {
		return nil, err
	}
	return generated, nil
}

// generatePassword returns a random URL-safe password
func generatePassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
