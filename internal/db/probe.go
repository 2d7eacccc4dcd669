package db

import (
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

// capabilities records which optional columns the wiki schema carries.
type capabilities struct {
	contentModel bool // page.page_content_model
	uploadActor  bool // image.img_actor
	uploadUser   bool // image.img_user (pre-actor schemas)
}

// capabilities probes the schema until one probe succeeds, then reuses that
// answer. While probing fails every optional column counts as absent.
func (d *DB) capabilities() capabilities {
	d.probeMu.Lock()
	defer d.probeMu.Unlock()
	if d.probed {
		return d.caps
	}
	caps, err := d.probe()
	if err != nil {
		logger.Warn("db: schema probe failed, using minimal query shapes: %v", err)
		return capabilities{}
	}
	d.caps, d.probed = caps, true
	logger.Debug("db: schema capabilities %+v", caps)
	return caps
}

func (d *DB) probe() (capabilities, error) {
	page, image := d.tableName("page"), d.tableName("image")

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name IN ($1, $2)
		  AND column_name IN ('page_content_model', 'img_actor', 'img_user')`, page, image)
	if err != nil {
		return capabilities{}, err
	}
	defer rows.Close()

	var caps capabilities
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return capabilities{}, err
		}
		switch {
		case table == page && column == "page_content_model":
			caps.contentModel = true
		case table == image && column == "img_actor":
			caps.uploadActor = true
		case table == image && column == "img_user":
			caps.uploadUser = true
		}
	}
	return caps, rows.Err()
}
