// Package cmd implements the sgctl command tree.
package cmd
