package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_strategy.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[strategy](buildOptions(tc)...)

			result, err := decoder.Decode(Source{ClientID: tc.ClientID, Kind: tc.Kind}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded strategy mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecodeRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[strategy]().Decode(Source{Kind: "strategy"}, nil)
	if err == nil || !strings.Contains(err.Error(), "payload is nil for strategy") {
		t.Fatalf("expected nil payload error, got %v", err)
	}
}

func TestDecodeLeavesPayloadUntouched(t *testing.T) {
	payload := map[string]any{"stance": "cost"}
	decoder := NewDecoder[strategy](WithPreHook[strategy](postureAliasPreHook))

	if _, err := decoder.Decode(Source{}, payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["posture"]; ok {
		t.Fatalf("expected caller payload untouched, got %v", payload)
	}
	if payload["stance"] != "cost" {
		t.Fatalf("expected stance preserved, got %v", payload)
	}
}

func TestSourceString(t *testing.T) {
	cases := []struct {
		src  Source
		want string
	}{
		{src: Source{}, want: "payload"},
		{src: Source{Kind: "view"}, want: "view"},
		{src: Source{ClientID: "orion"}, want: "orion"},
		{src: Source{ClientID: "orion", Kind: "effective"}, want: "orion/effective"},
	}
	for _, tc := range cases {
		if got := tc.src.String(); got != tc.want {
			t.Fatalf("Source%+v.String() = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[strategy] {
	options := []DecoderOption[strategy]{}
	for _, name := range tc.Options {
		if name == "disallow_unknown" {
			options = append(options, WithDisallowUnknownFields[strategy]())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "posture_alias" {
			options = append(options, WithPreHook[strategy](postureAliasPreHook))
		}
	}
	for _, name := range tc.PostHooks {
		if name == "default_tag" {
			options = append(options, WithPostHook[strategy](defaultTagPostHook))
		}
	}
	return options
}

func postureAliasPreHook(_ Source, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["stance"]
	if !ok {
		return payload, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("stance must be a string, got %T", raw)
	}
	delete(payload, "stance")
	payload["posture"] = value
	return payload, nil
}

func defaultTagPostHook(src Source, snapshot *strategy) error {
	if snapshot == nil {
		return errors.New("snapshot is nil")
	}
	if len(snapshot.Tags) == 0 {
		snapshot.Tags = []string{src.ClientID + ":" + src.Kind}
	}
	return nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string         `json:"name"`
	ClientID  string         `json:"clientId"`
	Kind      string         `json:"kind"`
	Input     map[string]any `json:"input"`
	Expect    strategy       `json:"expect"`
	ExpectErr string         `json:"expectErr"`
	PreHooks  []string       `json:"preHooks"`
	PostHooks []string       `json:"postHooks"`
	Options   []string       `json:"options"`
}

type strategy struct {
	Posture     string   `json:"posture"`
	HorizonDays int      `json:"horizon_days"`
	Tags        []string `json:"tags"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}
