// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

//go:build integration

package postgres_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/armoryhq/armory/internal/character"
	"github.com/armoryhq/armory/internal/character/mocks"
	"github.com/armoryhq/armory/internal/character/postgres"
)

var _ = Describe("Active character resolution", func() {
	var (
		ctx      context.Context
		repo     *postgres.CharacterRepository
		probe    *postgres.SchemaProbe
		resolver *character.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewCharacterRepository(testPool)
		probe = postgres.NewSchemaProbe(testPool)
		resolver = character.NewResolver(character.NewValidator(repo), repo, character.WithPreferredStore(probe))
	})

	It("prefers a synced character over a never-synced one", func() {
		user := createUser(ctx)
		synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		createCharacter(ctx, user, "A", nil)
		b := createCharacter(ctx, user, "B", &synced)

		slot := mocks.NewActiveSlot(0)
		got, err := resolver.Resolve(ctx, user, slot)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(b))

		id, ok := slot.ActiveCharacter()
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(b))
	})

	It("breaks updated_at ties on the larger id", func() {
		user := createUser(ctx)
		same := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		createCharacter(ctx, user, "First", &same)
		second := createCharacter(ctx, user, "Second", &same)

		got, err := resolver.Resolve(ctx, user, mocks.NewActiveSlot(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(second))
	})

	It("ignores a session pointer to another user's character", func() {
		owner := createUser(ctx)
		other := createUser(ctx)
		foreign := createCharacter(ctx, other, "C", nil)
		mine := createCharacter(ctx, owner, "Mine", nil)

		slot := mocks.NewActiveSlot(foreign)
		got, err := resolver.Resolve(ctx, owner, slot)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(mine))
		id, _ := slot.ActiveCharacter()
		Expect(id).To(Equal(mine))
	})

	It("round-trips the durable preferred pointer", func() {
		user := createUser(ctx)
		synced := time.Now()
		older := createCharacter(ctx, user, "Older", nil)
		createCharacter(ctx, user, "Newer", &synced)

		_, err := resolver.SetActive(ctx, user, strconv.FormatInt(older, 10), mocks.NewActiveSlot(0))
		Expect(err).NotTo(HaveOccurred())

		// A fresh login has an empty session but the durable pointer survives.
		got, err := resolver.Resolve(ctx, user, mocks.NewActiveSlot(0))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(older))
	})

	It("reports no characters for an empty account", func() {
		user := createUser(ctx)
		_, err := resolver.Resolve(ctx, user, mocks.NewActiveSlot(0))
		Expect(character.KindOf(err)).To(Equal(character.KindNoCharacters))
	})
})

var _ = Describe("Character deletion", func() {
	var (
		ctx     context.Context
		deleter *character.Deleter
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo := postgres.NewCharacterRepository(testPool)
		deleter = character.NewDeleter(character.NewValidator(repo), postgres.NewPurger(testPool))
	})

	confirm := func(id int64) character.DeleteRequest {
		return character.DeleteRequest{CharacterID: id, Confirmation: character.ConfirmationToken}
	}

	It("removes rows in every populated table and reports the total", func() {
		user := createUser(ctx)
		char := createCharacter(ctx, user, "Arthas", nil)
		bystander := createCharacter(ctx, user, "Uther", nil)
		populated := map[string]int{"combat_encounters": 3, "character_items": 5, "gold_ledger": 2, "loot_history": 1}
		for table, n := range populated {
			insertDependent(ctx, table, char, n)
		}
		insertDependent(ctx, "loot_history", bystander, 2)

		result, err := deleter.Delete(ctx, user, confirm(char))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RowsDeleted).To(Equal(int64(11)))
		Expect(result.CharacterName).To(Equal("Arthas"))

		nonzero := 0
		for _, o := range result.Outcomes {
			Expect(o.Status).To(Equal(character.OutcomeDeleted))
			if o.Rows > 0 {
				nonzero++
			}
		}
		Expect(nonzero).To(Equal(4))
		Expect(characterExists(ctx, char)).To(BeFalse())
		for table := range populated {
			Expect(countRows(ctx, table, char)).To(BeZero())
		}
		Expect(countRows(ctx, "loot_history", bystander)).To(Equal(2))
	})

	It("never touches auction market history", func() {
		user := createUser(ctx)
		char := createCharacter(ctx, user, "Trader", nil)
		_, err := testPool.Exec(ctx,
			`INSERT INTO auction_market_history (character_id, item_id, price_copper) VALUES ($1, 1, 100)`, char)
		Expect(err).NotTo(HaveOccurred())

		_, err = deleter.Delete(ctx, user, confirm(char))
		Expect(err).NotTo(HaveOccurred())
		Expect(countRows(ctx, "auction_market_history", char)).To(Equal(1))
	})

	It("rejects a wrong-case confirmation without side effects", func() {
		user := createUser(ctx)
		char := createCharacter(ctx, user, "Kept", nil)
		insertDependent(ctx, "gold_ledger", char, 2)

		_, err := deleter.Delete(ctx, user, character.DeleteRequest{CharacterID: char, Confirmation: "permanent"})
		Expect(character.KindOf(err)).To(Equal(character.KindInvalidInput))
		Expect(characterExists(ctx, char)).To(BeTrue())
		Expect(countRows(ctx, "gold_ledger", char)).To(Equal(2))
	})

	It("refuses to delete another user's character", func() {
		owner := createUser(ctx)
		attacker := createUser(ctx)
		char := createCharacter(ctx, owner, "Target", nil)

		_, err := deleter.Delete(ctx, attacker, confirm(char))
		Expect(character.KindOf(err)).To(Equal(character.KindNotOwned))
		Expect(characterExists(ctx, char)).To(BeTrue())
	})

	Context("with schema drift", func() {
		BeforeEach(func() {
			_, err := testPool.Exec(ctx, `ALTER TABLE toy_collection RENAME TO toy_collection_archived`)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_, err := testPool.Exec(context.Background(), `ALTER TABLE toy_collection_archived RENAME TO toy_collection`)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		It("skips the missing table and still deletes everything else", func() {
			user := createUser(ctx)
			char := createCharacter(ctx, user, "Drifter", nil)
			insertDependent(ctx, "combat_encounters", char, 2)
			insertDependent(ctx, "character_notes", char, 1)

			result, err := deleter.Delete(ctx, user, confirm(char))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RowsDeleted).To(Equal(int64(3)))

			var skipped []string
			for _, o := range result.Outcomes {
				if o.Status == character.OutcomeSkipped {
					skipped = append(skipped, o.Table)
				}
			}
			Expect(skipped).To(Equal([]string{"toy_collection"}))
			Expect(characterExists(ctx, char)).To(BeFalse())
			Expect(countRows(ctx, "character_notes", char)).To(BeZero())
		})
	})

	Context("when the character row cannot be deleted", func() {
		BeforeEach(func() {
			_, err := testPool.Exec(ctx, `
				CREATE OR REPLACE FUNCTION block_character_delete() RETURNS trigger AS $$
				BEGIN
					RAISE EXCEPTION 'character deletes are frozen';
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER freeze_characters BEFORE DELETE ON characters
					FOR EACH ROW EXECUTE FUNCTION block_character_delete();`)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_, err := testPool.Exec(context.Background(), `
					DROP TRIGGER IF EXISTS freeze_characters ON characters;
					DROP FUNCTION IF EXISTS block_character_delete();`)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		It("rolls back every dependent delete", func() {
			user := createUser(ctx)
			char := createCharacter(ctx, user, "Frozen", nil)
			insertDependent(ctx, "combat_encounters", char, 3)
			insertDependent(ctx, "gold_ledger", char, 1)

			_, err := deleter.Delete(ctx, user, confirm(char))
			Expect(character.KindOf(err)).To(Equal(character.KindStorageFailure))
			Expect(characterExists(ctx, char)).To(BeTrue())
			Expect(countRows(ctx, "combat_encounters", char)).To(Equal(3))
			Expect(countRows(ctx, "gold_ledger", char)).To(Equal(1))
		})
	})

	It("lets exactly one of two concurrent deletes win", func() {
		user := createUser(ctx)
		char := createCharacter(ctx, user, "Contested", nil)
		insertDependent(ctx, "loot_history", char, 3)

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = deleter.Delete(ctx, user, confirm(char))
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			Expect(character.KindOf(err)).To(Equal(character.KindNotOwned))
		}
		Expect(succeeded).To(Equal(1))
		Expect(characterExists(ctx, char)).To(BeFalse())
	})
})

var _ = Describe("SchemaProbe", func() {
	It("notices the preferred column going away", func() {
		ctx := context.Background()
		probe := postgres.NewSchemaProbe(testPool)
		user := createUser(ctx)
		char := createCharacter(ctx, user, "Pointer", nil)

		Expect(probe.HasPreferredCharacterColumn(ctx)).To(BeTrue())

		_, err := testPool.Exec(ctx, `ALTER TABLE users RENAME COLUMN preferred_character_id TO preferred_character_id_old`)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_, err := testPool.Exec(context.Background(), `ALTER TABLE users RENAME COLUMN preferred_character_id_old TO preferred_character_id`)
			Expect(err).NotTo(HaveOccurred())
		})

		Expect(probe.WritePreferred(ctx, user, char)).To(Succeed())
		Expect(probe.HasPreferredCharacterColumn(ctx)).To(BeFalse())

		probe.Invalidate()
		Expect(probe.HasPreferredCharacterColumn(ctx)).To(BeFalse())
	})

	It("lists which dependent tables exist", func() {
		probe := postgres.NewSchemaProbe(testPool)
		got, err := probe.ExistingTables(context.Background(), append([]string{"no_such_table"}, character.DependentTables...))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(character.DependentTables))
	})
})
