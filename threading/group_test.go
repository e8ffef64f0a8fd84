package threading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelmail/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC)
}

func TestGroupByReferences(t *testing.T) {
	mails := []models.Mail{
		{ID: "3", MessageID: "<c@x>", References: "<a@x> <b@x>", Subject: "Re: Re: Plan", Date: day(3), Read: true, Address: "bob@x"},
		{ID: "1", MessageID: "<a@x>", Subject: "Plan", Date: day(1), Read: true, Address: "ann@x"},
		{ID: "9", MessageID: "<z@x>", Subject: "Other", Date: day(2), Read: false, Address: "cat@x"},
		{ID: "2", MessageID: "<b@x>", InReplyTo: "<a@x>", Subject: "Re: Plan", Date: day(2), Read: false, Address: "bob@x"},
	}

	threads := Group(mails)
	require.Len(t, threads, 2)

	plan := threads[0]
	assert.Equal(t, "<a@x>", plan.ID)
	assert.Equal(t, "Plan", plan.Subject)
	assert.Equal(t, 3, plan.MessageCount)
	assert.Equal(t, day(3), plan.LastDate)
	assert.True(t, plan.Unread)
	assert.Equal(t, []string{"ann@x", "bob@x"}, plan.Participants)
	assert.Equal(t, "1", plan.Messages[0].ID)
	assert.Equal(t, "3", plan.Latest().ID)

	assert.Equal(t, "Other", threads[1].Subject)
	assert.Equal(t, 1, threads[1].MessageCount)
}

func TestGroupFallsBackToSubject(t *testing.T) {
	mails := []models.Mail{
		{ID: "1", Subject: "Lunch?", Date: day(1), Read: true},
		{ID: "2", Subject: "RE: lunch?", Date: day(2), Read: true},
		{ID: "3", Subject: "", Date: day(3), Read: true},
		{ID: "4", Subject: "", Date: day(4), Read: true},
	}

	threads := Group(mails)
	require.Len(t, threads, 3)
	assert.Equal(t, "4", threads[0].ID)
	assert.Equal(t, "3", threads[1].ID)
	assert.Equal(t, 2, threads[2].MessageCount)
	assert.False(t, threads[2].Unread)
}

func TestGroupToleratesLoopsAndDuplicates(t *testing.T) {
	mails := []models.Mail{
		{ID: "1", MessageID: "<a@x>", InReplyTo: "<b@x>", Subject: "Loop", Date: day(1)},
		{ID: "2", MessageID: "<b@x>", InReplyTo: "<a@x>", Subject: "Loop", Date: day(2)},
		{ID: "3", MessageID: "<b@x>", Subject: "Copy", Date: day(3)},
	}

	threads := Group(mails)
	total := 0
	for _, thread := range threads {
		total += thread.MessageCount
	}
	assert.Equal(t, 3, total)
}

func TestCleanSubject(t *testing.T) {
	assert.Equal(t, "Plan", CleanSubject("Re: FWD: re:Plan"))
	assert.Equal(t, "plan", NormalizeSubject("  Aw: WG: Plan "))
	assert.Equal(t, "", CleanSubject("Re:"))
}
