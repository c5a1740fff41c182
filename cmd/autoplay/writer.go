package main

import (
	"log"

	"github.com/brensch/gridiron/store"
)

type gameWriteRequest struct {
	seed   int64
	ticks  []store.TickRow
	drives []store.DriveRow
}

// parquetWriterLoop buffers finished games and flushes them every gamesPerFlush
// games. Seeds go into the ledger only after their rows are on disk, so an
// interrupted run replays anything that was never flushed.
func parquetWriterLoop(outDir string, gamesPerFlush int, ledger *store.SeedLedger, in <-chan gameWriteRequest) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	pendingTicks := make([]store.TickRow, 0, 256*gamesPerFlush)
	pendingDrives := make([]store.DriveRow, 0, 4*gamesPerFlush)
	pendingSeeds := make([]int64, 0, gamesPerFlush)

	flush := func(final bool) {
		label := "flush"
		if final {
			label = "final flush"
		}
		tickPath, drivePath, err := store.WriteBatchAtomic(outDir, pendingTicks, pendingDrives)
		if err != nil {
			log.Printf("Parquet %s failed (games=%d ticks=%d): %v", label, len(pendingSeeds), len(pendingTicks), err)
		} else {
			log.Printf("Parquet %s ok: %s %s (games=%d ticks=%d drives=%d)", label, tickPath, drivePath, len(pendingSeeds), len(pendingTicks), len(pendingDrives))
			if ledger != nil {
				if err := ledger.AddMany(pendingSeeds); err != nil {
					log.Printf("Ledger update failed: %v", err)
				}
			}
		}
		pendingTicks = pendingTicks[:0]
		pendingDrives = pendingDrives[:0]
		pendingSeeds = pendingSeeds[:0]
	}

	for req := range in {
		if len(req.ticks) == 0 {
			continue
		}
		pendingTicks = append(pendingTicks, req.ticks...)
		pendingDrives = append(pendingDrives, req.drives...)
		pendingSeeds = append(pendingSeeds, req.seed)

		if len(pendingSeeds) >= gamesPerFlush {
			flush(false)
		}
	}

	if len(pendingSeeds) > 0 {
		flush(true)
	}
}

// seedSource yields seeds from base upward that the ledger has not seen, stopping
// after limit seeds when limit > 0. The channel closes when done is closed.
func seedSource(base int64, limit int64, ledger *store.SeedLedger, done <-chan struct{}) <-chan int64 {
	out := make(chan int64)
	go func() {
		defer close(out)
		var sent int64
		for seed := base; limit <= 0 || sent < limit; seed++ {
			if ledger != nil && ledger.Has(seed) {
				continue
			}
			select {
			case out <- seed:
				sent++
			case <-done:
				return
			}
		}
	}()
	return out
}
