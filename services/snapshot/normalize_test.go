package snapshot

import (
	"reflect"
	"testing"

	"dbaccountsync/models"
)

func TestFlattenListPlainStrings(t *testing.T) {
	raw := []interface{}{"SELECT", "INSERT", "SELECT", "  ", "UPDATE"}

	got, dropped := FlattenList(raw)

	want := []string{"SELECT", "INSERT", "UPDATE"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestFlattenListRecords(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"role": "readonly"},
		"writer",
		map[string]interface{}{"role": ""},
		"",
		map[string]interface{}{"role": nil},
	}

	got, dropped := FlattenList(raw)

	want := []string{"readonly", "writer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestFlattenListSingleFieldRecord(t *testing.T) {
	// A single-field record is accepted regardless of the field name.
	raw := []interface{}{
		map[string]interface{}{"grantee_role": "dba_viewer"},
	}

	got, dropped := FlattenList(raw)

	if !reflect.DeepEqual(got, []string{"dba_viewer"}) {
		t.Errorf("Expected [dba_viewer], got %v", got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestFlattenListUnrecognizedEntriesCounted(t *testing.T) {
	raw := []interface{}{
		"SELECT",
		42,
		map[string]interface{}{"a": "x", "b": "y"},
	}

	got, dropped := FlattenList(raw)

	if !reflect.DeepEqual(got, []string{"SELECT"}) {
		t.Errorf("Expected [SELECT], got %v", got)
	}
	if dropped != 2 {
		t.Errorf("Expected 2 dropped entries, got %d", dropped)
	}
}

func TestFlattenListEmptyVsUnrecognized(t *testing.T) {
	// Ambiguous input must stay distinguishable from genuinely empty input.
	emptyList, emptyDropped := FlattenList([]interface{}{})
	badList, badDropped := FlattenList([]interface{}{12.5})

	if len(emptyList) != 0 || emptyDropped != 0 {
		t.Errorf("Expected empty clean result, got %v dropped=%d", emptyList, emptyDropped)
	}
	if len(badList) != 0 || badDropped != 1 {
		t.Errorf("Expected empty result with dropped=1, got %v dropped=%d", badList, badDropped)
	}
}

func TestFlattenListKeyedMappingFlattens(t *testing.T) {
	raw := map[string]interface{}{
		"beta":  []interface{}{"SELECT"},
		"alpha": []interface{}{"INSERT", "SELECT"},
	}

	got, dropped := FlattenList(raw)

	// Keys iterate sorted, each key's entries in first-seen order, deduped.
	want := []string{"INSERT", "SELECT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestFlattenListIdempotent(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"privilege": "CREATE SESSION"},
		"SELECT ANY TABLE",
		"CREATE SESSION",
	}

	once, _ := FlattenList(raw)
	twice, dropped := FlattenList(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected idempotent coercion, first %v then %v", once, twice)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries on second pass, got %d", dropped)
	}
}

func TestFlattenKeyedMapping(t *testing.T) {
	raw := map[string]interface{}{
		"sales": []interface{}{
			map[string]interface{}{"privilege": "SELECT"},
			"INSERT",
		},
		"hr": []interface{}{"SELECT", "SELECT"},
	}

	got, dropped := FlattenKeyed(raw)

	want := map[string][]string{
		"sales": {"SELECT", "INSERT"},
		"hr":    {"SELECT"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestFlattenKeyedFlatListFoldsIntoEmptyKey(t *testing.T) {
	got, dropped := FlattenKeyed([]interface{}{"db_datareader"})

	want := map[string][]string{"": {"db_datareader"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped entries, got %d", dropped)
	}
}

func TestNormalizeCategoriesRoutesByKind(t *testing.T) {
	raw := map[string]interface{}{
		models.CategoryGlobalPrivileges: []interface{}{"SELECT", "SELECT", "PROCESS"},
		models.CategoryDatabasePrivileges: map[string]interface{}{
			"appdb": []interface{}{map[string]interface{}{"privilege": "INSERT"}},
		},
	}

	got, dropped := NormalizeCategories(models.EngineMySQL, raw)

	if dropped != 0 {
		t.Fatalf("Expected 0 dropped entries, got %d", dropped)
	}
	flat, ok := got[models.CategoryGlobalPrivileges].([]string)
	if !ok || !reflect.DeepEqual(flat, []string{"SELECT", "PROCESS"}) {
		t.Errorf("Expected flat [SELECT PROCESS], got %v", got[models.CategoryGlobalPrivileges])
	}
	keyed, ok := got[models.CategoryDatabasePrivileges].(map[string][]string)
	if !ok || !reflect.DeepEqual(keyed["appdb"], []string{"INSERT"}) {
		t.Errorf("Expected keyed appdb [INSERT], got %v", got[models.CategoryDatabasePrivileges])
	}
}

func TestEngineCategoriesKnownEngines(t *testing.T) {
	for _, engine := range []models.Engine{
		models.EngineMySQL, models.EnginePostgreSQL, models.EngineSQLServer, models.EngineOracle,
	} {
		if len(EngineCategories(engine)) == 0 {
			t.Errorf("Expected categories for engine %s", engine)
		}
	}
	if cats := EngineCategories(models.Engine("mongodb")); cats != nil {
		t.Errorf("Expected nil categories for unknown engine, got %v", cats)
	}
}
