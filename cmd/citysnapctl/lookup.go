package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citysnap/gateway/pkg/citysnap"
)

func newLookupCmd(root *rootOptions) *cobra.Command {
	var (
		address   string
		lat, lon  float64
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Describe a building by address or coordinates",
		Example: `  citysnapctl lookup --address "Vozdvizhenka 3/5, Moscow"
  citysnapctl lookup --lat 55.7494 --lon 37.6094 --image facade.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := citysnap.Query{Address: address}

			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return errors.New("--lat and --lon must be given together")
			}
			if latSet {
				q.Coordinates = &citysnap.Coordinates{Lat: lat, Lon: lon}
			}
			if q.Address == "" && q.Coordinates == nil {
				return errors.New("either --address or --lat/--lon is required")
			}

			if imagePath != "" {
				img, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				q.Image = img
			}

			client, err := root.client()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), root.timeout)
			defer cancel()

			res, err := client.BuildingInfo(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().StringVar(&imagePath, "image", "", "photo of the building (jpeg, png, gif or webp)")
	return cmd
}
