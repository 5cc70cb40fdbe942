package main

import (
	"context"
	"fmt"
)

// checkOverdue dispatches a notification for every overdue task that has not
// been flagged yet. Safe to run repeatedly, eg. from cron.
func (cli *commandLine) checkOverdue() error {
	count, err := cli.notifSvc.ScanOverdue(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d overdue notification(s) dispatched\n", count)
	return nil
}
