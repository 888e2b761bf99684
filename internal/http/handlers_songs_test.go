package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestListSongs_Empty(t *testing.T) {
	st := newFakeJobStore()
	app := testApp("GET", "/api/converted-songs", songsListHandler, map[string]any{"store": st})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/converted-songs", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out ListSongsResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success {
		t.Fatal("expected success")
	}
	if out.Songs == nil {
		t.Fatal("songs must be an empty array, not null")
	}
	if len(out.Songs) != 0 {
		t.Fatalf("expected no songs, got %d", len(out.Songs))
	}
}

func TestListSongs_PreservesStoreOrder(t *testing.T) {
	st := newFakeJobStore()
	for _, name := range []string{"first.mp3", "second.mp3", "third.mp3"} {
		if _, err := st.CreateJob(context.Background(), name, "/x/"+name, "female"); err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}

	app := testApp("GET", "/api/converted-songs", songsListHandler, map[string]any{"store": st})
	resp, err := app.Test(httptest.NewRequest("GET", "/api/converted-songs", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var out ListSongsResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Songs) != 3 {
		t.Fatalf("expected 3 songs, got %d", len(out.Songs))
	}
	for i, want := range []string{"first.mp3", "second.mp3", "third.mp3"} {
		if out.Songs[i].OriginalName != want {
			t.Fatalf("songs[%d] = %q, want %q", i, out.Songs[i].OriginalName, want)
		}
	}
}

func TestDeleteSong_InvalidID(t *testing.T) {
	st := newFakeJobStore()
	app := testApp("DELETE", "/api/converted-songs/:id", songDeleteHandler, map[string]any{
		"store":     st,
		"artifacts": testArtifacts(t),
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/converted-songs/abc", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteSong_UnknownIDHasNoSideEffects(t *testing.T) {
	st := newFakeJobStore()
	app := testApp("DELETE", "/api/converted-songs/:id", songDeleteHandler, map[string]any{
		"store":     st,
		"artifacts": testArtifacts(t),
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/converted-songs/42", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var out DeleteSongResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Code != "NOT_FOUND" {
		t.Fatalf("code = %q, want NOT_FOUND", out.Code)
	}
	if st.deleteCalls != 0 {
		t.Fatal("unknown id must not reach DeleteJob")
	}
}

func TestDeleteSong_RemovesFilesAndRecord(t *testing.T) {
	st := newFakeJobStore()
	artifacts := testArtifacts(t)

	original := filepath.Join(artifacts.UploadDir(), "song-1-abcd.mp3")
	derived := artifacts.DerivedPath(original)
	if err := os.WriteFile(original, []byte("orig"), 0o644); err != nil {
		t.Fatalf("seed original: %v", err)
	}
	if err := os.WriteFile(derived, []byte("conv"), 0o644); err != nil {
		t.Fatalf("seed derived: %v", err)
	}

	job, err := st.CreateJob(context.Background(), "track.mp3", original, "female")
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	st.mu.Lock()
	j := st.jobs[job.ID]
	j.Status = "completed"
	j.ConvertedURL.Valid = true
	j.ConvertedURL.String = artifacts.DerivedURL(original)
	st.jobs[job.ID] = j
	st.mu.Unlock()

	app := testApp("DELETE", "/api/converted-songs/:id", songDeleteHandler, map[string]any{
		"store":     st,
		"artifacts": artifacts,
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/converted-songs/1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out DeleteSongResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success || out.Message != "Song deleted successfully" {
		t.Fatalf("unexpected response %+v", out)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", out.Warnings)
	}

	if _, err := os.Stat(original); !os.IsNotExist(err) {
		t.Fatal("original file should be removed")
	}
	if _, err := os.Stat(derived); !os.IsNotExist(err) {
		t.Fatal("derived file should be removed")
	}
	if st.jobCount() != 0 {
		t.Fatal("job record should be removed")
	}
}

func TestDeleteSong_MissingFilesStillDeletesRecord(t *testing.T) {
	st := newFakeJobStore()
	artifacts := testArtifacts(t)

	// Job points at files that were never written; removal of a missing
	// file is not a warning.
	original := filepath.Join(artifacts.UploadDir(), "song-2-efgh.mp3")
	job, err := st.CreateJob(context.Background(), "gone.mp3", original, "male")
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	st.mu.Lock()
	j := st.jobs[job.ID]
	j.Status = "completed"
	j.ConvertedURL.Valid = true
	j.ConvertedURL.String = artifacts.DerivedURL(original)
	st.jobs[job.ID] = j
	st.mu.Unlock()

	app := testApp("DELETE", "/api/converted-songs/:id", songDeleteHandler, map[string]any{
		"store":     st,
		"artifacts": artifacts,
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/converted-songs/1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out DeleteSongResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("missing files must not produce warnings, got %v", out.Warnings)
	}
	if st.jobCount() != 0 {
		t.Fatal("job record should be removed")
	}
}
