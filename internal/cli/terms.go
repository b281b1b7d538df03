package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/internal/configstore"
)

var termLists = []string{
	configstore.ListStopwordsHE,
	configstore.ListStopwordsEN,
	configstore.ListLegalStopwords,
	configstore.ListImportantConcepts,
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage the curated term lists",
	Long: `Manages the stopword and concept lists stored in the settings
database. Lists: stopwords_he, stopwords_en, legal_stopwords,
important_concepts. Stored terms extend the built-in lists.`,
}

var termsListCmd = &cobra.Command{
	Use:   "list [list]",
	Short: "Show the stored terms of a list",
	Args:  cobra.ExactArgs(1),
	RunE:  runTermsList,
}

var termsAddCmd = &cobra.Command{
	Use:   "add [list] [term]",
	Short: "Add a term to a list",
	Args:  cobra.ExactArgs(2),
	RunE:  runTermsAdd,
}

var termsRemoveCmd = &cobra.Command{
	Use:   "remove [list] [term]",
	Short: "Remove a term from a list",
	Args:  cobra.ExactArgs(2),
	RunE:  runTermsRemove,
}

func init() {
	termsCmd.AddCommand(termsListCmd)
	termsCmd.AddCommand(termsAddCmd)
	termsCmd.AddCommand(termsRemoveCmd)
	rootCmd.AddCommand(termsCmd)
}

func validTermList(name string) error {
	for _, l := range termLists {
		if l == name {
			return nil
		}
	}
	return fmt.Errorf("unknown list %q, want one of %v", name, termLists)
}

func openTermStore() (*app, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		a.close()
		return nil, errors.New("settings store unavailable")
	}
	return a, nil
}

func runTermsList(cmd *cobra.Command, args []string) error {
	if err := validTermList(args[0]); err != nil {
		return err
	}
	a, err := openTermStore()
	if err != nil {
		return err
	}
	defer a.close()

	terms, err := a.store.Terms(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		cmd.Println("No stored terms.")
		return nil
	}
	for _, t := range terms {
		cmd.Println(t)
	}
	return nil
}

func runTermsAdd(cmd *cobra.Command, args []string) error {
	if err := validTermList(args[0]); err != nil {
		return err
	}
	a, err := openTermStore()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.AddTerm(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Added %q to %s\n", args[1], args[0])
	return nil
}

func runTermsRemove(cmd *cobra.Command, args []string) error {
	if err := validTermList(args[0]); err != nil {
		return err
	}
	a, err := openTermStore()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.RemoveTerm(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Removed %q from %s\n", args[1], args[0])
	return nil
}
