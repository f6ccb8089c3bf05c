package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Warn})
	ctx := context.Background()

	l.Info(ctx, "info %s", "msg")
	assert.NotContains(t, buf.String(), "info msg")

	l.Warn(ctx, "warn %s", "msg")
	assert.Contains(t, buf.String(), "warn msg")

	l.Error(ctx, "error %s", "msg")
	assert.Contains(t, buf.String(), "error msg")
}

func TestLogModeReturnsCopy(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Error})

	info := l.LogMode(Info)
	require.NotNil(t, info)
	assert.Equal(t, Info, info.(*logger).LogLevel)
	assert.Equal(t, Error, l.(*logger).LogLevel)
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Info})
	ctx := context.Background()

	l.Trace(ctx, time.Now(), func() (string, int64) {
		return "INSERT INTO `users` (`name`) VALUES (?)", 1
	}, nil)
	assert.Contains(t, buf.String(), "INSERT INTO `users`")
	assert.Contains(t, buf.String(), "[rows:1]")

	buf.Reset()
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 1", -1
	}, errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "[rows:-]")
}

func TestTraceSlowSQL(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Warn, SlowThreshold: time.Nanosecond})

	l.Trace(context.Background(), time.Now().Add(-time.Millisecond), func() (string, int64) {
		return "SELECT SLEEP(10)", 0
	}, nil)
	assert.Contains(t, buf.String(), "SLOW SQL")
}

func TestTraceSilent(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), Config{LogLevel: Silent})

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		t.Fatalf("fc should not be called when silent")
		return "", 0
	}, nil)
	assert.Empty(t, buf.String())
}

func TestParamsFilter(t *testing.T) {
	l := New(log.New(&bytes.Buffer{}, "", 0), Config{ParameterizedQueries: true})

	sql, params := l.(*logger).ParamsFilter(context.Background(), "SELECT ?", 1)
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}

func TestExplainSQL(t *testing.T) {
	type role string

	cases := []struct {
		sql    string
		vars   []interface{}
		result string
	}{
		{
			sql:    "INSERT INTO `users` (`name`,`age`) VALUES (?,?),(?,?)",
			vars:   []interface{}{"ann", 18, "sam", nil},
			result: "INSERT INTO `users` (`name`,`age`) VALUES ('ann',18),('sam',NULL)",
		},
		{
			sql:    "SELECT * FROM `users` WHERE `score` > ? AND `active` = ?",
			vars:   []interface{}{1.5, true},
			result: "SELECT * FROM `users` WHERE `score` > 1.500000 AND `active` = true",
		},
		{
			sql:    "UPDATE `users` SET `role` = ? WHERE `id` = ?",
			vars:   []interface{}{role("admin"), int64(3)},
			result: "UPDATE `users` SET `role` = 'admin' WHERE `id` = 3",
		},
		{
			sql:    "SELECT * FROM `users` WHERE `name` = ?",
			vars:   []interface{}{[]byte("it's")},
			result: `SELECT * FROM ` + "`users`" + ` WHERE ` + "`name`" + ` = 'it\'s'`,
		},
	}

	for idx, c := range cases {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			assert.Equal(t, c.result, ExplainSQL(c.sql, "'", c.vars...))
		})
	}
}

func TestExplainSQLTime(t *testing.T) {
	tm := time.Date(2020, 9, 8, 7, 6, 5, 0, time.UTC)
	got := ExplainSQL("VALUES (?)", "'", tm)
	if !strings.Contains(got, "2020-09-08 07:06:05") {
		t.Errorf("unexpected time format: %s", got)
	}
}
