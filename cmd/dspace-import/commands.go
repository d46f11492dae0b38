package main

import (
	"context"
	"fmt"

	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Log in and print the server's view of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), func(ctx context.Context) error {
				status, err := s.repo.LoginStatus(ctx)
				if err != nil {
					return err
				}
				return s.printJSON(status)
			})
		},
	}
}

type ingestResult struct {
	Community  dspace.ID           `json:"community"`
	Collection dspace.ID           `json:"collection"`
	ID         dspace.ID           `json:"id"`
	Handle     string              `json:"handle"`
	Bitstreams []*dspace.Bitstream `json:"bitstreams"`
}

// NewIngestCommand creates the ingest command
func NewIngestCommand() *cobra.Command {
	var communityName string
	var collectionName string
	var metadataFile string
	var files []string
	var s3Objects []string
	var identifier string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create an item with its bitstreams",
		Long: `Find or create the community and collection, create an item from a JSON
metadata file, upload every --file and --s3-object to it and optionally set its
dc.identifier.uri.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}

			metadata, err := s.readMetadata(metadataFile)
			if err != nil {
				return err
			}

			var s3Source dspace.BitstreamSource
			if len(s3Objects) > 0 {
				s3Source, err = buildS3Source(cmd.Context(), s.cfg)
				if err != nil {
					return err
				}
			}

			return s.run(cmd.Context(), func(ctx context.Context) error {
				community, err := s.repo.FindOrCreateCommunity(ctx, communityName)
				if err != nil {
					return err
				}
				collection, err := community.FindOrCreateCollection(ctx, collectionName)
				if err != nil {
					return err
				}
				item, err := collection.CreateItem(ctx, metadata)
				if err != nil {
					return err
				}

				result := ingestResult{
					Community:  community.ID,
					Collection: collection.ID,
					ID:         item.ID,
					Handle:     item.Handle,
					Bitstreams: []*dspace.Bitstream{},
				}

				for _, path := range files {
					bitstream, err := item.AddBitstream(ctx, path)
					if err != nil {
						return fmt.Errorf("item %s: %w", item.ID, err)
					}
					result.Bitstreams = append(result.Bitstreams, bitstream)
				}
				for _, ref := range s3Objects {
					bitstream, err := item.AddBitstreamFrom(ctx, s3Source, ref)
					if err != nil {
						return fmt.Errorf("item %s: %w", item.ID, err)
					}
					result.Bitstreams = append(result.Bitstreams, bitstream)
				}

				if identifier != "" {
					if err := item.UpdateIdentifier(ctx, identifier); err != nil {
						return fmt.Errorf("item %s: %w", item.ID, err)
					}
				}

				return s.printJSON(result)
			})
		},
	}

	cmd.Flags().StringVar(&communityName, "community", "", "community name (created when missing)")
	cmd.Flags().StringVar(&collectionName, "collection", "", "collection name (created when missing)")
	cmd.Flags().StringVar(&metadataFile, "metadata", "", "JSON file with the item's metadata entries")
	cmd.Flags().StringArrayVar(&files, "file", nil, "local file to upload (repeatable)")
	cmd.Flags().StringArrayVar(&s3Objects, "s3-object", nil, "S3 key or s3://bucket/key to upload (repeatable)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "replace dc.identifier.uri with this value")
	_ = cmd.MarkFlagRequired("community")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("metadata")

	return cmd
}

// NewMetadataCommand creates the metadata command group
func NewMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Change the metadata of an existing item",
	}

	cmd.AddCommand(newMetadataReplaceCommand())
	cmd.AddCommand(newSetIdentifierCommand())

	return cmd
}

func newMetadataReplaceCommand() *cobra.Command {
	var itemID string
	var metadataFile string

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace every field present in the metadata file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}
			entries, err := s.readMetadata(metadataFile)
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), func(ctx context.Context) error {
				item, err := s.repo.Item(ctx, dspace.ID(itemID))
				if err != nil {
					return err
				}
				if err := item.ReplaceMetadataField(ctx, entries); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Replaced %d metadata entries on item %s\n", len(entries), item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	cmd.Flags().StringVar(&metadataFile, "metadata", "", "JSON file with the replacement entries")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("metadata")

	return cmd
}

func newSetIdentifierCommand() *cobra.Command {
	var itemID string
	var identifier string

	cmd := &cobra.Command{
		Use:   "set-identifier",
		Short: "Replace the item's dc.identifier.uri",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSessionFromFlags(cmd)
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), func(ctx context.Context) error {
				item, err := s.repo.Item(ctx, dspace.ID(itemID))
				if err != nil {
					return err
				}
				if err := item.UpdateIdentifier(ctx, identifier); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Item %s identifier set to %s\n", item.ID, identifier)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	cmd.Flags().StringVar(&identifier, "identifier", "", "new dc.identifier.uri value")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}
