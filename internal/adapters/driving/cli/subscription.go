package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage subscribers",
}

var userAddCmd = &cobra.Command{
	Use:         "add",
	Short:       "Register a subscriber",
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runUserAdd,
}

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage filing subscriptions",
	Long: `A subscription is a saved filter on issuer CIKs, reporting-owner CIKs and
form types. An empty filter matches everything on that dimension. Each run
emails a user one digest covering all of their subscriptions.`,
}

var subscriptionAddCmd = &cobra.Command{
	Use:         "add",
	Short:       "Add a subscription for a user",
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runSubscriptionAdd,
}

var subscriptionListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List subscriptions by user",
	Args:        cobra.NoArgs,
	Annotations: needsServices,
	RunE:        runSubscriptionList,
}

var subscriptionRemoveCmd = &cobra.Command{
	Use:         "remove [subscription-id]",
	Short:       "Remove a subscription",
	Args:        cobra.ExactArgs(1),
	Annotations: needsServices,
	RunE:        runSubscriptionRemove,
}

var (
	userEmail string
	userName  string

	subUserID      string
	subIssuers     []string
	subOwners      []string
	subFormTypes   []string
	subDescription string
)

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address digests are sent to")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)

	subscriptionAddCmd.Flags().StringVar(&subUserID, "user", "", "ID of the subscribing user")
	subscriptionAddCmd.Flags().StringSliceVar(&subIssuers, "issuer", nil, "issuer CIK (repeatable)")
	subscriptionAddCmd.Flags().StringSliceVar(&subOwners, "owner", nil, "reporting-owner CIK (repeatable)")
	subscriptionAddCmd.Flags().StringSliceVar(&subFormTypes, "form", nil, "form type, e.g. 4 or 4/A (repeatable)")
	subscriptionAddCmd.Flags().StringVar(&subDescription, "description", "", "label shown in digests")
	subscriptionCmd.AddCommand(subscriptionAddCmd)
	subscriptionCmd.AddCommand(subscriptionListCmd)
	subscriptionCmd.AddCommand(subscriptionRemoveCmd)
	rootCmd.AddCommand(subscriptionCmd)
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	if subscriptionService == nil {
		return errors.New("subscription service not configured")
	}

	user, err := subscriptionService.AddUser(cmd.Context(), domain.User{Email: userEmail, Name: userName})
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}

	cmd.Printf("Added user: %s (%s)\n", user.ID, user.Email)
	return nil
}

func runSubscriptionAdd(cmd *cobra.Command, _ []string) error {
	if subscriptionService == nil {
		return errors.New("subscription service not configured")
	}

	sub, err := subscriptionService.Subscribe(cmd.Context(), domain.Subscription{
		UserID:      subUserID,
		IssuerCIKs:  subIssuers,
		OwnerCIKs:   subOwners,
		FormTypes:   subFormTypes,
		Description: subDescription,
	})
	if err != nil {
		return fmt.Errorf("failed to add subscription: %w", err)
	}

	cmd.Printf("Added subscription: %s\n", sub.ID)
	return nil
}

func runSubscriptionList(cmd *cobra.Command, _ []string) error {
	if subscriptionService == nil {
		return errors.New("subscription service not configured")
	}

	groups, err := subscriptionService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if len(groups) == 0 {
		cmd.Println("No subscriptions.")
		return nil
	}

	cmd.Println("Subscriptions:")
	for _, group := range groups {
		cmd.Printf("\nUser %s\n", group.UserID)
		for i := range group.Subscriptions {
			printSubscription(cmd, &group.Subscriptions[i])
		}
	}
	return nil
}

func printSubscription(cmd *cobra.Command, sub *domain.Subscription) {
	label := sub.Description
	if label == "" {
		label = "(no description)"
	}
	cmd.Printf("  %s  %s\n", sub.ID, label)
	cmd.Printf("    Issuers: %s\n", listOrAny(sub.IssuerCIKs))
	cmd.Printf("    Owners:  %s\n", listOrAny(sub.OwnerCIKs))
	cmd.Printf("    Forms:   %s\n", listOrAny(sub.FormTypes))
	if sub.LastTriggered != nil {
		cmd.Printf("    Last notified: %s\n", sub.LastTriggered.UTC().Format(time.RFC3339))
	} else {
		cmd.Printf("    Last notified: never\n")
	}
}

func listOrAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}

func runSubscriptionRemove(cmd *cobra.Command, args []string) error {
	if subscriptionService == nil {
		return errors.New("subscription service not configured")
	}

	id := args[0]
	if err := subscriptionService.Unsubscribe(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to remove subscription: %w", err)
	}

	cmd.Printf("Removed subscription: %s\n", id)
	return nil
}
