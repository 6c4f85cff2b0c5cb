/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/talent-hunters/bookportal/internal/server"
	"github.com/talent-hunters/bookportal/internal/services"
	"go.uber.org/zap"
)

var classCategory string

// catalogCmd seeds the class and subject lookup lists.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the class and subject lists",
}

var addClassCmd = &cobra.Command{
	Use:   "add-class GRADE",
	Short: "Add a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(deps server.Deps, log *zap.Logger) error {
			class, err := deps.Catalog.CreateClass(cmd.Context(), services.ClassInput{
				Grade:    args[0],
				Category: classCategory,
			})
			if err != nil {
				return err
			}
			log.Info("class added", zap.String("id", class.ID), zap.String("grade", class.Grade))
			fmt.Fprintln(cmd.OutOrStdout(), class.ID)
			return nil
		})
	},
}

var addSubjectCmd = &cobra.Command{
	Use:   "add-subject NAME",
	Short: "Add a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(deps server.Deps, log *zap.Logger) error {
			subject, err := deps.Catalog.CreateSubject(cmd.Context(), services.SubjectInput{Subject: args[0]})
			if err != nil {
				return err
			}
			log.Info("subject added", zap.String("id", subject.ID), zap.String("subject", subject.Subject))
			fmt.Fprintln(cmd.OutOrStdout(), subject.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(addClassCmd, addSubjectCmd)
	addClassCmd.Flags().StringVar(&classCategory, "category", "", "optional class category")
}
