package lanternqueue

import (
	"encoding/json"
	"fmt"

	"github.com/riverqueue/river/rivertype"
)

func toJobInfo(row *rivertype.JobRow) (JobInfo, error) {
	var args RoundExpireJob
	if err := json.Unmarshal(row.EncodedArgs, &args); err != nil {
		return JobInfo{}, fmt.Errorf("job %d has malformed args: %w", row.ID, err)
	}
	return JobInfo{
		ID:          row.ID,
		State:       string(row.State),
		EndTime:     args.EndTime,
		ScheduledAt: row.ScheduledAt,
		Attempt:     row.Attempt,
	}, nil
}
