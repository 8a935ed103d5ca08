package posts

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var (
	listQuery       = "SELECT `id`, `title`, `text`, `creator_id`, `points`, `created_at`, `updated_at` FROM posts ORDER BY created_at DESC LIMIT \\?"
	listCursorQuery = "SELECT `id`, `title`, `text`, `creator_id`, `points`, `created_at`, `updated_at` FROM posts WHERE created_at < \\? ORDER BY created_at DESC LIMIT \\?"
	getQuery        = "SELECT `id`, `title`, `text`, `creator_id`, `points`, `created_at`, `updated_at` FROM posts WHERE id = \\?"
)

var postColumnNames = []string{"id", "title", "text", "creator_id", "points", "created_at", "updated_at"}

var baseTime = time.Date(2021, 3, 14, 15, 9, 26, 535000000, time.UTC)

func testPost(id int64, created time.Time) *Post {
	return &Post{
		ID:        id,
		Title:     "title",
		Text:      "text",
		CreatorID: 1,
		Points:    0,
		Created:   created,
		Updated:   created,
	}
}

func addPostRow(rows *sqlmock.Rows, p *Post) {
	rows.AddRow(p.ID, p.Title, p.Text, p.CreatorID, p.Points, p.Created, p.Updated)
}

func TestListFirstPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	// two rows fit, a third signals another page
	expected := []*Post{
		testPost(3, baseTime.Add(2*time.Second)),
		testPost(2, baseTime.Add(time.Second)),
	}
	extra := testPost(1, baseTime)

	rows := sqlmock.NewRows(postColumnNames)
	addPostRow(rows, expected[0])
	addPostRow(rows, expected[1])
	addPostRow(rows, extra)

	mock.ExpectQuery(listQuery).WithArgs(3).WillReturnRows(rows)

	feed, err := repo.List(context.Background(), 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}

	if !feed.HasMore {
		t.Errorf("expected hasMore")
	}
	if !reflect.DeepEqual(expected, feed.Posts) {
		t.Fatalf("expected %v, but was %v", expected, feed.Posts)
	}
}

func TestListLastPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	expected := []*Post{testPost(1, baseTime)}
	rows := sqlmock.NewRows(postColumnNames)
	addPostRow(rows, expected[0])

	mock.ExpectQuery(listQuery).WithArgs(3).WillReturnRows(rows)

	feed, err := repo.List(context.Background(), 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}

	if feed.HasMore {
		t.Errorf("expected no more pages")
	}
	if !reflect.DeepEqual(expected, feed.Posts) {
		t.Fatalf("expected %v, but was %v", expected, feed.Posts)
	}
}

func TestListClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	// limit 1000 behaves exactly like limit 50
	mock.ExpectQuery(listQuery).WithArgs(MaxPageSize + 1).
		WillReturnRows(sqlmock.NewRows(postColumnNames))

	feed, err := repo.List(context.Background(), 1000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	if feed.HasMore {
		t.Errorf("expected no more pages")
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListWithCursor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	before := baseTime.Add(time.Second)
	expected := []*Post{testPost(1, baseTime)}
	rows := sqlmock.NewRows(postColumnNames)
	addPostRow(rows, expected[0])

	mock.ExpectQuery(listCursorQuery).WithArgs(before, 3).WillReturnRows(rows)

	feed, err := repo.List(context.Background(), 2, &before)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}

	if !reflect.DeepEqual(expected, feed.Posts) {
		t.Fatalf("expected %v, but was %v", expected, feed.Posts)
	}
}

func TestGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	expected := testPost(5, baseTime)
	rows := sqlmock.NewRows(postColumnNames)
	addPostRow(rows, expected)

	mock.ExpectQuery(getQuery).WithArgs(int64(5)).WillReturnRows(rows)

	fact, err := repo.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	if !reflect.DeepEqual(expected, fact) {
		t.Fatalf("expected %v, but was %v", expected, fact)
	}

	// no rows
	mock.ExpectQuery(getQuery).WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(postColumnNames))

	fact, err = repo.GetByID(context.Background(), 6)
	if fact != nil || err != nil {
		t.Fatalf("wrong result, expected both nil but was %v, %v", fact, err)
	}

	// error
	mock.ExpectQuery(getQuery).WithArgs(int64(7)).
		WillReturnError(errors.New("db_error"))

	fact, err = repo.GetByID(context.Background(), 7)
	if fact != nil {
		t.Fatalf("unexpected result: %v", fact)
	}
	if err == nil {
		t.Fatalf("expected error but was nil")
	}
}

func TestAdd(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	mock.ExpectExec("INSERT INTO posts").
		WithArgs("Hello", "World", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	p := &Post{Title: "Hello", Text: "World", CreatorID: 1}
	id, err := repo.Add(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}

	if id != 12 || p.ID != 12 {
		t.Errorf("expected id 12 but was %v (%v)", id, p.ID)
	}
	if p.Created.IsZero() || p.Updated.IsZero() {
		t.Errorf("expected timestamps to be set")
	}
}

func TestUpdateOwnerPredicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	updateQuery := regexp.QuoteMeta("UPDATE posts SET `title` = ?, `text` = ?, `updated_at` = ? WHERE id = ? AND creator_id = ?")

	// someone else's post matches nothing
	mock.ExpectExec(updateQuery).
		WithArgs("new title", "new text", sqlmock.AnyArg(), int64(5), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	fact, err := repo.Update(context.Background(), 5, 99, "new title", "new text")
	if fact != nil || err != nil {
		t.Fatalf("wrong result, expected both nil but was %v, %v", fact, err)
	}

	// own post updates and re-reads
	mock.ExpectExec(updateQuery).
		WithArgs("new title", "new text", sqlmock.AnyArg(), int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expected := testPost(5, baseTime)
	expected.Title = "new title"
	expected.Text = "new text"
	rows := sqlmock.NewRows(postColumnNames)
	addPostRow(rows, expected)
	mock.ExpectQuery(getQuery).WithArgs(int64(5)).WillReturnRows(rows)

	fact, err = repo.Update(context.Background(), 5, 1, "new title", "new text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	if !reflect.DeepEqual(expected, fact) {
		t.Fatalf("expected %v, but was %v", expected, fact)
	}
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPostsRepoSQL(db)

	deletePost := regexp.QuoteMeta("DELETE FROM posts WHERE id = ? AND creator_id = ?")
	deleteVotes := regexp.QuoteMeta("DELETE FROM votes WHERE post_id = ?")

	// success removes the post and its votes in one transaction
	mock.ExpectBegin()
	mock.ExpectExec(deletePost).WithArgs(int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteVotes).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	ok, err := repo.Delete(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	if !ok {
		t.Errorf("expected true")
	}

	// deleting someone else's post is a polite no-op
	mock.ExpectBegin()
	mock.ExpectExec(deletePost).WithArgs(int64(5), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ok, err = repo.Delete(context.Background(), 5, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	if ok {
		t.Errorf("expected false")
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
