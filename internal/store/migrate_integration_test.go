// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/armoryhq/armory/internal/store"
)

var _ = Describe("Migrator", func() {
	var migrator *store.Migrator

	BeforeEach(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(migrator.Down()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())
		})
	})

	It("starts at version zero with everything pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{1, 2, 3}))
	})

	It("applies and steps back through every migration", func() {
		Expect(migrator.Up()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(3)))

		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed(), "second Up is a no-op")
	})

	It("creates the preferred character column only in migration 2", func() {
		ctx := context.Background()
		pool, err := store.Connect(ctx, connStr, store.ConnectOptions{Retries: 3, BaseDelay: 100 * time.Millisecond})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		columnExists := func() bool {
			var exists bool
			Expect(pool.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM information_schema.columns
				WHERE table_name = 'users' AND column_name = 'preferred_character_id')`).Scan(&exists)).To(Succeed())
			return exists
		}

		Expect(migrator.Steps(1)).To(Succeed())
		Expect(columnExists()).To(BeFalse())
		Expect(migrator.Steps(1)).To(Succeed())
		Expect(columnExists()).To(BeTrue())
	})
})

var _ = Describe("Connect", func() {
	It("applies the statement timeout to sessions", func() {
		ctx := context.Background()
		pool, err := store.Connect(ctx, connStr, store.ConnectOptions{StatementTimeout: 1500 * time.Millisecond})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		var timeout string
		Expect(pool.QueryRow(ctx, `SHOW statement_timeout`).Scan(&timeout)).To(Succeed())
		Expect(timeout).To(Equal("1500ms"))
	})
})
