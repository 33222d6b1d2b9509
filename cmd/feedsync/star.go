// ABOUTME: Star, unstar, and favorites commands for managing starred articles
// ABOUTME: Starred articles are saved in Favorites and survive feed removal

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var starCmd = &cobra.Command{
	Use:   "star <link>",
	Short: "Star an article",
	Long:  "Star an article by its link. Feeds are refreshed when the article is not already loaded.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		a, err := lookupArticle(ctx, m, args[0])
		if err != nil {
			return err
		}
		if a.Starred() {
			fmt.Printf("Already starred: %s\n", a.Title)
			return nil
		}
		if err := m.Star(ctx, a); err != nil {
			return fmt.Errorf("failed to star article: %w", err)
		}
		fmt.Printf("%s Starred: %s\n", green("★"), a.Title)
		return nil
	},
}

var unstarCmd = &cobra.Command{
	Use:   "unstar <link>",
	Short: "Remove an article from Favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		a, err := m.FindArticle(args[0])
		if err != nil {
			return err
		}
		if !a.Starred() {
			return fmt.Errorf("article is not starred: %s", args[0])
		}
		if err := m.Unstar(ctx, a); err != nil {
			return fmt.Errorf("failed to unstar article: %w", err)
		}
		fmt.Printf("Unstarred: %s\n", a.Title)
		return nil
	},
}

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "List starred articles",
	Long:    "List starred articles, most recently starred first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openCollection(cmd.Context(), false)
		if err != nil {
			return err
		}
		fav := m.Favorites()
		if fav.IsEmpty() {
			fmt.Println(fav.ErrorMessage())
			return nil
		}
		for _, a := range fav.Articles() {
			printArticle(os.Stdout, a)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(starCmd)
	rootCmd.AddCommand(unstarCmd)
	rootCmd.AddCommand(favoritesCmd)
}
