// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package wiki

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulfrost/hotwheels-api/store"
)

func openRepositories(t *testing.T) map[string]Repository {
	t.Helper()

	ctx := context.Background()

	sqlite, err := store.OpenSQLite(ctx, "")
	require.NoError(t, err)

	duckdb, err := store.OpenDuckDB(ctx, "")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqlite.Close()
		_ = duckdb.Close()
	})

	repos := map[string]Repository{
		"sqlite": NewRepository(sqlite),
		"duckdb": NewRepository(duckdb),
	}

	if dsn := os.Getenv("HOTWHEELS_TEST_POSTGRES_DSN"); dsn != "" {
		postgres, err := store.OpenPostgres(ctx, dsn)
		require.NoError(t, err)

		t.Cleanup(func() { _ = postgres.Close() })

		_, err = postgres.Exec(ctx, "DROP TABLE IF EXISTS hotwheel_designers, hotwheels, designers")
		require.NoError(t, err)

		repos["postgres"] = NewRepository(postgres)
	}

	for name, repo := range repos {
		require.NoError(t, repo.CreateSchema(ctx), name)
		// twice, the schema is created only when missing
		require.NoError(t, repo.CreateSchema(ctx), name)
	}

	return repos
}

func seed(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	for _, d := range []*Designer{
		{Name: "Jane Doe", Title: "Senior Designer", Description: "Designs cars."},
		{Name: "Larry Wood", Title: "Designer"},
	} {
		_, err := repo.SaveDesigner(ctx, d)
		require.NoError(t, err)
	}

	for _, h := range []*Hotwheel{
		{Name: "Twin Mill", Year: "2001", Series: "HW Legends", ModelNumber: "ABC12"},
		{Name: "Bone Shaker", Year: "2006"},
		{Name: "Deora", Year: "2001", ImageURL: "https://static.wikia.test/deora.png"},
	} {
		_, err := repo.SaveHotwheel(ctx, h)
		require.NoError(t, err)
	}

	for _, link := range [][2]int64{{1, 1}, {1, 2}, {2, 2}} {
		created, err := repo.LinkDesigner(ctx, link[0], link[1])
		require.NoError(t, err)
		require.True(t, created)
	}
}

func TestRepository(t *testing.T) {
	for name, repo := range openRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo)

			id, err := repo.FindDesignerID(ctx, " Larry Wood ")
			require.NoError(t, err)
			assert.Equal(t, int64(2), id)

			_, err = repo.FindDesignerID(ctx, "larry wood")
			assert.ErrorIs(t, err, ErrDesignerNotFound)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.SaveDesigner(ctx, &Designer{Name: "Jane Doe"})
			assert.Error(t, err, "designer names are unique")

			h, err := repo.GetHotwheel(ctx, 1)
			require.NoError(t, err)

			want := &Hotwheel{
				ID:          1,
				Name:        "Twin Mill",
				Year:        "2001",
				Series:      "HW Legends",
				ModelNumber: "ABC12",
				Designers:   []string{"Jane Doe", "Larry Wood"},
			}
			if diff := cmp.Diff(want, h); diff != "" {
				t.Errorf("GetHotwheel() mismatch (-want +got):\n%s", diff)
			}

			d, err := repo.GetDesigner(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"Twin Mill", "Bone Shaker"}, d.Hotwheels)
			assert.Equal(t, "", d.Description)

			_, err = repo.GetHotwheel(ctx, 42)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.GetDesigner(ctx, 42)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_LinkIsIdempotent(t *testing.T) {
	for name, repo := range openRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo)

			_, err := repo.LinkDesigner(ctx, 1, 1)
			require.NoError(t, err)

			h, err := repo.GetHotwheel(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"Jane Doe", "Larry Wood"}, h.Designers)
		})
	}
}

func TestRepository_ListHotwheels(t *testing.T) {
	names := func(hs []*Hotwheel) []string {
		out := []string{}
		for _, h := range hs {
			out = append(out, h.Name)
		}

		return out
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default page", ListOptions{}, []string{"Twin Mill", "Bone Shaker", "Deora"}},
		{"descending", ListOptions{Desc: true}, []string{"Deora", "Bone Shaker", "Twin Mill"}},
		{"limit and offset", ListOptions{Limit: 1, Offset: 1}, []string{"Bone Shaker"}},
		{"by year", ListOptions{Year: "2001"}, []string{"Twin Mill", "Deora"}},
		{"by series", ListOptions{Series: "HW Legends"}, []string{"Twin Mill"}},
		{"by designer", ListOptions{Designer: "Larry Wood"}, []string{"Twin Mill", "Bone Shaker"}},
		{"by designer and year", ListOptions{Designer: "Larry Wood", Year: "2006"}, []string{"Bone Shaker"}},
		{"no match", ListOptions{Year: "1968"}, []string{}},
	}

	for name, repo := range openRepositories(t) {
		seed(t, repo)

		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := repo.ListHotwheels(context.Background(), tt.opts)
				require.NoError(t, err)
				assert.Equal(t, tt.want, names(got))
			})
		}
	}
}

func TestRepository_ListDesigners(t *testing.T) {
	for name, repo := range openRepositories(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, repo)

			got, err := repo.ListDesigners(context.Background(), ListOptions{Desc: true})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "Larry Wood", got[0].Name)
			assert.Equal(t, "Senior Designer", got[1].Title)
		})
	}
}

func TestRepository_ClearResetsIDs(t *testing.T) {
	for name, repo := range openRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed(t, repo)

			require.NoError(t, repo.ClearHotwheels(ctx))

			all, err := repo.ListHotwheels(ctx, ListOptions{})
			require.NoError(t, err)
			assert.Empty(t, all)

			// designers survive, their links don't
			d, err := repo.GetDesigner(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, d.Hotwheels)

			id, err := repo.SaveHotwheel(ctx, &Hotwheel{Name: "Deora"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)

			require.NoError(t, repo.ClearDesigners(ctx))

			names, err := repo.DesignerNames(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			id, err = repo.SaveDesigner(ctx, &Designer{Name: "Ryu Asada", Title: "Designer"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)
		})
	}
}
