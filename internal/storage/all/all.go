// Package all registers every sink backend with the storage factory.
// Blank-import it from the binary that needs full backend support.
package all

import (
	_ "tweetcsv/internal/storage/csvfile"
	_ "tweetcsv/internal/storage/postgres"
)
