package sqlbulk

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlbulk/sqlbulk/logger"
)

type Author struct {
	ID    uint64
	Email string `bulk:"uniqueIndex:uq_email"`
	Name  string
	Books []Book
}

type Book struct {
	ID       uint64 `bulk:"primaryKey;autoIncrement"`
	AuthorID uint64
	Title    string
}

func mockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := New(&Config{ConnPool: sqlDB, Logger: logger.Discard})
	require.NoError(t, err)
	return db, mock
}

func dryRunDB(t *testing.T) *DB {
	t.Helper()
	db, _ := mockDB(t)
	return db.Session(&Session{DryRun: true})
}

func TestBulkInsertStatementShape(t *testing.T) {
	db := dryRunDB(t)

	authors := []Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
		{Email: "cat@example.com", Name: "Cat"},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Batches)
	require.Len(t, result.Statements, 2)

	assert.Equal(t, "INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)", result.Statements[0].SQL.String())
	assert.Equal(t, []interface{}{"ann@example.com", "Ann", "bob@example.com", "Bob"}, result.Statements[0].Vars)

	assert.Equal(t, "INSERT INTO `authors` (`email`,`name`) VALUES (?,?)", result.Statements[1].SQL.String())
	assert.Equal(t, []interface{}{"cat@example.com", "Cat"}, result.Statements[1].Vars)
}

func TestBulkUpsertStatementShape(t *testing.T) {
	db := dryRunDB(t)

	authors := []Author{{Email: "ann@example.com", Name: "Ann"}}
	result, err := db.BulkUpsert(context.Background(), authors)
	require.NoError(t, err)

	require.Len(t, result.Statements, 1)
	assert.Equal(t,
		"INSERT INTO `authors` (`email`,`name`) VALUES (?,?) ON DUPLICATE KEY UPDATE `name`=VALUES(`name`)",
		result.Statements[0].SQL.String())
}

func TestBulkUpdateGroupsBySetValues(t *testing.T) {
	db := dryRunDB(t)

	authors := []Author{
		{ID: 1, Email: "ann@example.com", Name: "archived"},
		{ID: 2, Email: "bob@example.com", Name: "archived"},
		{ID: 3, Email: "cat@example.com", Name: "active"},
	}
	result, err := db.BulkUpdate(context.Background(), authors)
	require.NoError(t, err)

	require.Len(t, result.Statements, 2)

	assert.Equal(t, "UPDATE `authors` SET `name`=? WHERE (`id` = ?) OR (`id` = ?)", result.Statements[0].SQL.String())
	assert.Equal(t, []interface{}{"archived", uint64(1), uint64(2)}, result.Statements[0].Vars)

	assert.Equal(t, "UPDATE `authors` SET `name`=? WHERE (`id` = ?)", result.Statements[1].SQL.String())
	assert.Equal(t, []interface{}{"active", uint64(3)}, result.Statements[1].Vars)
}

func TestBulkInsertExecutesBatches(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WithArgs("ann@example.com", "Ann", "bob@example.com", "Bob").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?)").
		WithArgs("cat@example.com", "Cat").
		WillReturnResult(sqlmock.NewResult(3, 1))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
		{Email: "cat@example.com", Name: "Cat"},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.RowsAffected)
	assert.Equal(t, 2, result.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertReconcilesIdentities(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WithArgs("ann@example.com", "Ann", "bob@example.com", "Bob").
		WillReturnResult(sqlmock.NewResult(11, 2))
	mock.ExpectQuery("SELECT `id`,`email` FROM `authors` WHERE (`email` = ?) OR (`email` = ?)").
		WithArgs("ann@example.com", "bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(12, "bob@example.com").
			AddRow(11, "ann@example.com"))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
	}
	_, err := db.BulkInsert(context.Background(), authors, Options{SetOutputIdentity: true})
	require.NoError(t, err)

	assert.Equal(t, uint64(11), authors[0].ID)
	assert.Equal(t, uint64(12), authors[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertSequentialIdentity(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?),(?,?)").
		WithArgs("ann@example.com", "Ann", "bob@example.com", "Bob", "cat@example.com", "Cat").
		WillReturnResult(sqlmock.NewResult(21, 3))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
		{Email: "cat@example.com", Name: "Cat"},
	}
	_, err := db.BulkInsert(context.Background(), authors, Options{
		SetOutputIdentity:  true,
		SequentialIdentity: true,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(21), authors[0].ID)
	assert.Equal(t, uint64(22), authors[1].ID)
	assert.Equal(t, uint64(23), authors[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReconcileEndToEnd(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WithArgs("ann@example.com", "Ann", "bob@example.com", "Bob").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery("SELECT `id`,`email` FROM `authors` WHERE (`email` = ?) OR (`email` = ?)").
		WithArgs("ann@example.com", "bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(1, "ann@example.com").
			AddRow(2, "bob@example.com"))
	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?)").
		WithArgs("cat@example.com", "Cat").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("SELECT `id`,`email` FROM `authors` WHERE (`email` = ?)").
		WithArgs("cat@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(3, "cat@example.com"))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
		{Email: "cat@example.com", Name: "Cat"},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{
		BatchSize:         2,
		SetOutputIdentity: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Batches)
	seen := map[uint64]bool{}
	for _, author := range authors {
		assert.NotZero(t, author.ID)
		assert.False(t, seen[author.ID])
		seen[author.ID] = true
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationIncomplete(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery("SELECT `id`,`email` FROM `authors` WHERE (`email` = ?) OR (`email` = ?)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(1, "ann@example.com"))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
	}
	_, err := db.BulkInsert(context.Background(), authors, Options{SetOutputIdentity: true})
	assert.ErrorIs(t, err, ErrIncompleteReconciliation)
}

func TestReconciliationAmbiguousKey(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WillReturnResult(sqlmock.NewResult(1, 2))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "ann@example.com", Name: "Ann Again"},
	}
	_, err := db.BulkInsert(context.Background(), authors, Options{SetOutputIdentity: true})
	assert.ErrorIs(t, err, ErrAmbiguousLookupKey)
	assert.ErrorIs(t, err, ErrIncompleteReconciliation)
}

func TestCascadePropagatesForeignKeys(t *testing.T) {
	db := dryRunDB(t)

	authors := []*Author{
		{ID: 1, Email: "ann@example.com", Name: "Ann", Books: []Book{{Title: "One"}, {Title: "Two"}}},
		{ID: 2, Email: "bob@example.com", Name: "Bob", Books: []Book{{Title: "Three"}}},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{IncludeChildren: true})
	require.NoError(t, err)

	require.Len(t, result.Statements, 2)
	assert.Equal(t, "INSERT INTO `books` (`author_id`,`title`) VALUES (?,?),(?,?),(?,?)", result.Statements[1].SQL.String())
	assert.Equal(t, []interface{}{uint64(1), "One", uint64(1), "Two", uint64(2), "Three"}, result.Statements[1].Vars)

	assert.Equal(t, uint64(1), authors[0].Books[0].AuthorID)
	assert.Equal(t, uint64(2), authors[1].Books[0].AuthorID)
}

func TestCascadeCarriesServerAssignedKeys(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)").
		WithArgs("ann@example.com", "Ann", "bob@example.com", "Bob").
		WillReturnResult(sqlmock.NewResult(11, 2))
	mock.ExpectQuery("SELECT `id`,`email` FROM `authors` WHERE (`email` = ?) OR (`email` = ?)").
		WithArgs("ann@example.com", "bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(11, "ann@example.com").
			AddRow(12, "bob@example.com"))
	mock.ExpectExec("INSERT INTO `books` (`author_id`,`title`) VALUES (?,?),(?,?),(?,?)").
		WithArgs(11, "One", 11, "Two", 12, "Three").
		WillReturnResult(sqlmock.NewResult(101, 3))
	mock.ExpectQuery("SELECT `id`,`author_id`,`title` FROM `books` WHERE (`author_id` = ? AND `title` = ?) OR (`author_id` = ? AND `title` = ?) OR (`author_id` = ? AND `title` = ?)").
		WithArgs(11, "One", 11, "Two", 12, "Three").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
			AddRow(101, 11, "One").
			AddRow(102, 11, "Two").
			AddRow(103, 12, "Three"))

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann", Books: []Book{{Title: "One"}, {Title: "Two"}}},
		{Email: "bob@example.com", Name: "Bob", Books: []Book{{Title: "Three"}}},
	}
	_, err := db.BulkInsert(context.Background(), authors, Options{
		SetOutputIdentity: true,
		IncludeChildren:   true,
	})
	require.NoError(t, err)

	// foreign keys carry the identities the server just assigned
	assert.Equal(t, uint64(11), authors[0].Books[0].AuthorID)
	assert.Equal(t, uint64(11), authors[0].Books[1].AuthorID)
	assert.Equal(t, uint64(12), authors[1].Books[0].AuthorID)

	assert.Equal(t, uint64(101), authors[0].Books[0].ID)
	assert.Equal(t, uint64(102), authors[0].Books[1].ID)
	assert.Equal(t, uint64(103), authors[1].Books[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeSkipsUnidentifiedParents(t *testing.T) {
	db := dryRunDB(t)

	authors := []*Author{
		{Email: "ann@example.com", Name: "Ann", Books: []Book{{Title: "One"}}},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{IncludeChildren: true})
	require.NoError(t, err)

	// identity never assigned, the child insert is withheld
	require.Len(t, result.Statements, 1)
}

func TestCascadeExcludeChildren(t *testing.T) {
	db := dryRunDB(t)

	authors := []*Author{
		{ID: 1, Email: "ann@example.com", Name: "Ann", Books: []Book{{Title: "One"}}},
	}
	result, err := db.BulkInsert(context.Background(), authors, Options{
		IncludeChildren: true,
		ExcludeChildren: []string{"Books"},
	})
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
}

type Category struct {
	ID            uint64
	Name          string
	Subcategories []Category `bulk:"foreignKey:ParentID;references:ID"`
	ParentID      uint64
}

func TestCascadeCyclicRelation(t *testing.T) {
	db := dryRunDB(t)

	categories := []*Category{
		{ID: 1, Name: "root", Subcategories: []Category{{Name: "leaf"}}},
	}
	_, err := db.BulkInsert(context.Background(), categories, Options{IncludeChildren: true})
	assert.ErrorIs(t, err, ErrCyclicRelation)
}

func TestEmptySliceIsNoOp(t *testing.T) {
	db, mock := mockDB(t)

	result, err := db.BulkInsert(context.Background(), []Author{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArrayInput(t *testing.T) {
	db := dryRunDB(t)

	authors := [2]Author{
		{Email: "ann@example.com", Name: "Ann"},
		{Email: "bob@example.com", Name: "Bob"},
	}
	result, err := db.BulkInsert(context.Background(), authors)
	require.NoError(t, err)

	require.Len(t, result.Statements, 1)
	assert.Equal(t, "INSERT INTO `authors` (`email`,`name`) VALUES (?,?),(?,?)", result.Statements[0].SQL.String())

	// pointer to array partitions the same way
	result, err = db.BulkInsert(context.Background(), &authors, Options{BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Batches)
}

func TestNonSliceValue(t *testing.T) {
	db, _ := mockDB(t)

	_, err := db.BulkInsert(context.Background(), Author{Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrUnmappedType)
}

func TestInvalidBatchSize(t *testing.T) {
	db, _ := mockDB(t)

	_, err := db.BulkInsert(context.Background(), []Author{{Email: "x"}}, Options{BatchSize: -1})
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestContextCancelled(t *testing.T) {
	db, _ := mockDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.BulkInsert(ctx, []Author{{Email: "ann@example.com"}})
	assert.ErrorIs(t, err, ErrConnection)
}
