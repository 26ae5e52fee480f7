package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRoomsCmd(rt *runtime) *cobra.Command {
	rooms := &cobra.Command{
		Use:   "rooms",
		Short: "Manage chat rooms",
	}

	rooms.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List rooms you belong to",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := rt.api.ListRooms(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME")
				for _, r := range list {
					fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Name)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := rt.api.CreateRoom(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created room %d %s\n", r.ID, r.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "members ROOM_ID",
			Short: "List the members of a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := roomArg(args[0])
				if err != nil {
					return err
				}
				members, err := rt.api.RoomMembers(cmd.Context(), id)
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Fprintln(cmd.OutOrStdout(), m.Username)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "invite ROOM_ID USERNAME",
			Short: "Add a user to a room",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := roomArg(args[0])
				if err != nil {
					return err
				}
				msg, err := rt.api.Invite(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if msg == "" {
					msg = "invited " + args[1]
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			},
		},
	)
	return rooms
}

func roomArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("cli: invalid room id %q", s)
	}
	return id, nil
}
