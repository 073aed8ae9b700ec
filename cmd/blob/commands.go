package blob

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [blobID] [value] [ttlSecs]",
		Short: "Stores a blob, a ttl of 0 means the blob never expires",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobID := args[0]
			value := args[1]
			ttlSecs, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("ttlSecs must be a number: %w", err)
			}
			if err := blobStore.Put(context.Background(), blobID, []byte(value), ttlSecs); err != nil {
				return err
			} else {
				fmt.Println("put successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [blobID]",
		Short: "Fetches a blob by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobID := args[0]
			if value, found, err := blobStore.Get(context.Background(), blobID); err != nil {
				return err
			} else {
				fmt.Printf("blobID=%s, found=%v, value=%s\n", blobID, found, value)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [blobID]",
		Short: "Deletes a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobID := args[0]
			if found, err := blobStore.Delete(context.Background(), blobID); err != nil {
				return err
			} else {
				fmt.Printf("blobID=%s, found=%t\n", blobID, found)
			}
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [blobID] [ttlSecs]",
		Short: "Updates the time to live of a stored blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobID := args[0]
			ttlSecs, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("ttlSecs must be a number: %w", err)
			}
			if found, err := blobStore.UpdateTTL(context.Background(), blobID, ttlSecs); err != nil {
				return err
			} else {
				fmt.Printf("blobID=%s, found=%t\n", blobID, found)
			}
			return nil
		},
	}
)
