/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements. See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reconciler

import (
	"context"
	"fmt"
	"github.com/go-errors/errors"
	"github.com/noctarius/datastore-column-mapper/internal/mappingstore"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/testsupport"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"strings"
	"testing"
	"time"
)

const (
	testResourceId = "7d5e9a52-0c1b-4fd3-a3b5-4b8a1f0e2c11"
	testPackageId  = "2b0c8c4e-package"
	testLimit      = 64
	testReserve    = 4
)

var testMappingTable = columnmapping.MappingTableName(testResourceId)

type ReconcilerTestSuite struct {
	suite.Suite
	storage    *testsupport.MemoryStorage
	catalog    *testsupport.MemoryCatalog
	store      *mappingstore.Store
	reconciler *Reconciler
}

func TestReconcilerTestSuite(
	t *testing.T,
) {

	suite.Run(t, new(ReconcilerTestSuite))
}

func (rts *ReconcilerTestSuite) SetupTest() {
	rts.storage = testsupport.NewMemoryStorage("public")
	rts.catalog = testsupport.NewMemoryCatalog(columnmapping.ResourceDescriptor{
		Id:          testResourceId,
		Name:        "measurements",
		PackageId:   testPackageId,
		Description: "weather station measurements",
	})

	store, err := mappingstore.NewStore(rts.storage, mappingstore.NewCache(), time.Millisecond*100, testLimit)
	rts.Require().NoError(err)
	rts.store = store

	reconciler, err := NewReconciler(store, rts.catalog, testLimit, testReserve)
	rts.Require().NoError(err)
	rts.reconciler = reconciler
}

func (rts *ReconcilerTestSuite) Test_Missing_Fields() {
	_, err := rts.reconciler.Reconcile(context.Background(), &columnmapping.LoadRequest{
		ResourceId: testResourceId,
	})
	rts.Require().Error(err)
	rts.True(columnmapping.IsMissingFields(err))
	rts.Equal(0, rts.storage.ExistsCalls())
}

func (rts *ReconcilerTestSuite) Test_Short_Fields_Create_No_Mapping() {
	reconciliation, err := rts.reconcile("id", "temperature", "humidity")
	rts.Require().NoError(err)

	rts.Equal(columnmapping.NoMapping, reconciliation.State)
	rts.Empty(reconciliation.Entries)
	rts.Empty(reconciliation.Columns)
	rts.False(rts.storage.HasTable(testMappingTable))
	rts.Empty(rts.catalog.Created())
}

func (rts *ReconcilerTestSuite) Test_Single_Long_Field() {
	longName := strings.Repeat("x", 80)

	reconciliation, err := rts.reconcile("id", longName)
	rts.Require().NoError(err)

	rts.Equal(columnmapping.MappingCurrent, reconciliation.State)
	rts.False(reconciliation.Rebuilt)
	rts.True(reconciliation.Registered)
	rts.Require().Len(reconciliation.Entries, 1)

	entry := reconciliation.Entries[0]
	rts.Equal(longName, entry.OriginalName)
	rts.Equal(strings.Repeat("x", 60)+"_1", entry.MappedName)
	rts.Equal(testResourceId, entry.ResourceId)
	rts.Equal(map[string]string{longName: entry.MappedName}, reconciliation.Columns)

	rows := rts.storage.Rows(testMappingTable)
	rts.Require().Len(rows, 1)
	rts.Equal(longName, rows[0]["original_name"])
	rts.Equal(entry.MappedName, rows[0]["mapped_name"])
	rts.Equal(testResourceId, rows[0]["resource_id"])

	created := rts.catalog.Created()
	rts.Require().Len(created, 1)
	rts.Equal("measurements_mapping", created[0].Name)
	rts.Equal(testPackageId, created[0].PackageId)
}

func (rts *ReconcilerTestSuite) Test_Colliding_Prefixes() {
	prefix := strings.Repeat("p", 64)
	first := prefix + "_first"
	second := prefix + "_second"

	reconciliation, err := rts.reconcile(first, second)
	rts.Require().NoError(err)
	rts.Require().Len(reconciliation.Entries, 2)

	mappedFirst := reconciliation.Columns[first]
	mappedSecond := reconciliation.Columns[second]
	rts.Equal(strings.Repeat("p", 60)+"_1", mappedFirst)
	rts.Equal(strings.Repeat("p", 60)+"_2", mappedSecond)

	rows := rts.storage.Rows(testMappingTable)
	rts.Require().Len(rows, 2)
	originals := lo.Map(rows, func(row map[string]any, _ int) any {
		return row["original_name"]
	})
	rts.ElementsMatch([]any{first, second}, originals)
}

func (rts *ReconcilerTestSuite) Test_Mapped_Names_Avoid_Short_Fields() {
	longName := strings.Repeat("y", 70)
	shortName := strings.Repeat("y", 60) + "_1"

	reconciliation, err := rts.reconcile(longName, shortName)
	rts.Require().NoError(err)
	rts.Require().Len(reconciliation.Entries, 1)
	rts.Equal(strings.Repeat("y", 60)+"_2", reconciliation.Columns[longName])
}

func (rts *ReconcilerTestSuite) Test_Mapped_Names_Are_Bounded_And_Distinct() {
	fields := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		fields = append(fields, fmt.Sprintf("%s %03d, measured", strings.Repeat("long column ", 6), i))
	}

	reconciliation, err := rts.reconcile(fields...)
	rts.Require().NoError(err)
	rts.Require().Len(reconciliation.Entries, len(fields))

	mappedNames := make(map[string]bool)
	for _, entry := range reconciliation.Entries {
		rts.LessOrEqual(len(entry.MappedName), testLimit)
		rts.NotContains(entry.MappedName, " ")
		rts.NotContains(entry.MappedName, ",")
		rts.False(mappedNames[entry.MappedName], "duplicate mapped name %s", entry.MappedName)
		mappedNames[entry.MappedName] = true
	}
}

func (rts *ReconcilerTestSuite) Test_Reconciliation_Is_Stable() {
	longName := strings.Repeat("s", 100)

	first, err := rts.reconcile("id", longName)
	rts.Require().NoError(err)

	second, err := rts.reconcile("id", longName)
	rts.Require().NoError(err)

	rts.Equal(columnmapping.MappingCurrent, second.State)
	rts.False(second.Rebuilt)
	rts.False(second.Registered)
	rts.Equal(first.Entries, second.Entries)
	rts.Equal(first.Columns, second.Columns)

	rts.Equal(1, rts.storage.Creates(testMappingTable))
	rts.Equal(0, rts.storage.Drops(testMappingTable))
	rts.Len(rts.catalog.Created(), 1)
}

func (rts *ReconcilerTestSuite) Test_Reconciliation_Survives_Cache_Loss() {
	longName := strings.Repeat("c", 90)

	first, err := rts.reconcile(longName)
	rts.Require().NoError(err)

	rts.store.Evict(testResourceId)

	second, err := rts.reconcile(longName)
	rts.Require().NoError(err)
	rts.Equal(first.Columns, second.Columns)
	rts.Equal(0, rts.storage.Drops(testMappingTable))
}

func (rts *ReconcilerTestSuite) Test_Drift_Rebuilds_Once() {
	kept := strings.Repeat("k", 70)
	removed := strings.Repeat("r", 70)

	_, err := rts.reconcile("id", kept, removed)
	rts.Require().NoError(err)

	reconciliation, err := rts.reconcile("id", kept)
	rts.Require().NoError(err)

	rts.Equal(columnmapping.MappingCurrent, reconciliation.State)
	rts.True(reconciliation.Rebuilt)
	rts.False(reconciliation.Registered)
	rts.Equal(1, rts.storage.Drops(testMappingTable))
	rts.Equal(2, rts.storage.Creates(testMappingTable))

	rows := rts.storage.Rows(testMappingTable)
	rts.Require().Len(rows, 1)
	rts.Equal(kept, rows[0]["original_name"])
	rts.Equal(map[string]string{kept: strings.Repeat("k", 60) + "_1"}, reconciliation.Columns)

	// and stays current afterwards
	again, err := rts.reconcile("id", kept)
	rts.Require().NoError(err)
	rts.False(again.Rebuilt)
	rts.Equal(1, rts.storage.Drops(testMappingTable))
	rts.Len(rts.catalog.Created(), 1)
}

func (rts *ReconcilerTestSuite) Test_Drift_By_Added_Field() {
	first := strings.Repeat("a", 65)
	second := strings.Repeat("b", 65)

	_, err := rts.reconcile(first)
	rts.Require().NoError(err)

	reconciliation, err := rts.reconcile(first, second)
	rts.Require().NoError(err)
	rts.True(reconciliation.Rebuilt)
	rts.Len(reconciliation.Entries, 2)
	rts.Len(rts.storage.Rows(testMappingTable), 2)
}

func (rts *ReconcilerTestSuite) Test_Short_Field_Changes_Are_No_Drift() {
	longName := strings.Repeat("l", 66)

	_, err := rts.reconcile("id", longName)
	rts.Require().NoError(err)

	reconciliation, err := rts.reconcile("id", "added", longName)
	rts.Require().NoError(err)
	rts.False(reconciliation.Rebuilt)
	rts.Equal(0, rts.storage.Drops(testMappingTable))
}

func (rts *ReconcilerTestSuite) Test_Drift_To_No_Long_Fields_Drops_Mapping() {
	_, err := rts.reconcile("id", strings.Repeat("d", 64))
	rts.Require().NoError(err)

	reconciliation, err := rts.reconcile("id")
	rts.Require().NoError(err)
	rts.Equal(columnmapping.NoMapping, reconciliation.State)
	rts.True(reconciliation.Rebuilt)
	rts.False(rts.storage.HasTable(testMappingTable))

	columns, _ := rts.store.Get(testResourceId)
	rts.Empty(columns)
}

func (rts *ReconcilerTestSuite) Test_Existence_Check_Timeout() {
	rts.storage.SetExistsLatency(time.Second)

	_, err := rts.reconcile(strings.Repeat("t", 70))
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageTimeout(err))
	rts.False(rts.storage.HasTable(testMappingTable))
}

func (rts *ReconcilerTestSuite) Test_Existence_Check_Failure() {
	rts.storage.FailOn(testsupport.ExistsCheck, errors.New("permission denied for schema public"))

	_, err := rts.reconcile(strings.Repeat("t", 70))
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageEngineError(err))
}

func (rts *ReconcilerTestSuite) Test_Create_Failure_Leaves_No_State() {
	rts.storage.FailOn(testsupport.CreateStatement, errors.New("permission denied for schema public"))

	_, err := rts.reconcile(strings.Repeat("f", 70))
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageEngineError(err))

	_, present := rts.store.Cached(testResourceId)
	rts.False(present)
	rts.Empty(rts.catalog.Created())
}

func (rts *ReconcilerTestSuite) Test_Drop_Failure_Keeps_Mapping() {
	kept := strings.Repeat("k", 70)
	_, err := rts.reconcile(kept, strings.Repeat("r", 70))
	rts.Require().NoError(err)

	rts.storage.FailOn(testsupport.DropStatement, errors.New("could not obtain lock"))
	_, err = rts.reconcile(kept)
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageEngineError(err))

	rts.Len(rts.storage.Rows(testMappingTable), 2)
	mapping, present := rts.store.Cached(testResourceId)
	rts.Require().True(present)
	rts.Equal(2, mapping.Length())
}

func (rts *ReconcilerTestSuite) Test_Resource_Descriptor_Skips_Resource_Show() {
	_, err := rts.reconciler.Reconcile(context.Background(), &columnmapping.LoadRequest{
		ResourceId: testResourceId,
		Resource: &columnmapping.ResourceDescriptor{
			Name:      "uploaded",
			PackageId: "other-package",
		},
		Fields: fields(strings.Repeat("n", 64)),
	})
	rts.Require().NoError(err)

	rts.Equal(0, rts.catalog.ShowCalls())
	created := rts.catalog.Created()
	rts.Require().Len(created, 1)
	rts.Equal("uploaded_mapping", created[0].Name)
	rts.Equal("other-package", created[0].PackageId)
}

func (rts *ReconcilerTestSuite) Test_Unnamed_Resource_Falls_Back_To_Description() {
	unnamedId := "unnamed-resource"
	catalog := testsupport.NewMemoryCatalog(columnmapping.ResourceDescriptor{
		Id:          unnamedId,
		PackageId:   testPackageId,
		Description: "sensor dump",
	})
	reconciler, err := NewReconciler(rts.store, catalog, testLimit, testReserve)
	rts.Require().NoError(err)

	_, err = reconciler.Reconcile(context.Background(), &columnmapping.LoadRequest{
		ResourceId: unnamedId,
		Resource:   &columnmapping.ResourceDescriptor{},
		Fields:     fields(strings.Repeat("n", 64)),
	})
	rts.Require().NoError(err)

	rts.Equal(1, catalog.ShowCalls())
	created := catalog.Created()
	rts.Require().Len(created, 1)
	rts.Equal("sensor dump_mapping", created[0].Name)
	rts.Equal(testPackageId, created[0].PackageId)
}

func (rts *ReconcilerTestSuite) Test_Catalog_Failure_Is_Propagated() {
	rts.catalog.FailCreate(errors.New("403 forbidden"))

	_, err := rts.reconcile(strings.Repeat("z", 64))
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageEngineError(err))

	// no unregistered table is left behind
	rts.False(rts.storage.HasTable(testMappingTable))
	_, present := rts.store.Cached(testResourceId)
	rts.False(present)
}

func (rts *ReconcilerTestSuite) Test_Registration_Is_Retried_After_Catalog_Failure() {
	longName := strings.Repeat("z", 64)
	rts.catalog.FailCreate(errors.New("503 service unavailable"))

	_, err := rts.reconcile("id", longName)
	rts.Require().Error(err)

	rts.catalog.FailCreate(nil)
	reconciliation, err := rts.reconcile("id", longName)
	rts.Require().NoError(err)
	rts.True(reconciliation.Registered)
	rts.False(reconciliation.Rebuilt)
	rts.True(rts.storage.HasTable(testMappingTable))
	rts.Len(rts.catalog.Created(), 1)
}

func (rts *ReconcilerTestSuite) Test_Short_Field_Taking_A_Mapped_Name_Is_Drift() {
	longName := strings.Repeat("q", 80)
	mappedName := strings.Repeat("q", 60) + "_1"

	first, err := rts.reconcile(longName)
	rts.Require().NoError(err)
	rts.Equal(mappedName, first.Columns[longName])

	reconciliation, err := rts.reconcile(longName, mappedName)
	rts.Require().NoError(err)
	rts.True(reconciliation.Rebuilt)
	rts.Equal(1, rts.storage.Drops(testMappingTable))

	rts.Equal(map[string]string{longName: strings.Repeat("q", 60) + "_2"}, reconciliation.Columns)
	rows := rts.storage.Rows(testMappingTable)
	rts.Require().Len(rows, 1)
	rts.Equal(strings.Repeat("q", 60)+"_2", rows[0]["mapped_name"])
}

func (rts *ReconcilerTestSuite) Test_Table_Dropped_By_Other_Process() {
	other, err := mappingstore.NewStore(rts.storage, mappingstore.NewCache(), time.Second, testLimit)
	rts.Require().NoError(err)

	first := strings.Repeat("p", 70) + "_first"
	second := strings.Repeat("p", 70) + "_second"
	mappedName := strings.Repeat("p", 60) + "_1"

	_, err = rts.reconcile("id", first)
	rts.Require().NoError(err)

	rts.Require().NoError(other.Delete(context.Background(), testResourceId))

	reconciliation, err := rts.reconcile("id", second)
	rts.Require().NoError(err)
	rts.Equal(columnmapping.MappingCurrent, reconciliation.State)
	rts.Equal(map[string]string{second: mappedName}, reconciliation.Columns)

	rows := rts.storage.Rows(testMappingTable)
	rts.Require().Len(rows, 1)
	rts.Equal(second, rows[0]["original_name"])
}

func (rts *ReconcilerTestSuite) Test_Over_Length_Resource_Id() {
	resourceId := strings.Repeat("i", testLimit)
	_, err := rts.reconciler.Reconcile(context.Background(), &columnmapping.LoadRequest{
		ResourceId: resourceId,
		Fields:     fields(strings.Repeat("o", 70)),
	})
	rts.Require().Error(err)
	rts.True(columnmapping.IsStorageEngineError(err))
	rts.Empty(rts.catalog.Created())
}

func (rts *ReconcilerTestSuite) Test_Invalid_Truncation_Parameters() {
	_, err := NewReconciler(rts.store, rts.catalog, 4, 4)
	rts.Error(err)
}

func (rts *ReconcilerTestSuite) reconcile(
	fieldIds ...string,
) (*Reconciliation, error) {

	return rts.reconciler.Reconcile(context.Background(), &columnmapping.LoadRequest{
		ResourceId: testResourceId,
		Fields:     fields(fieldIds...),
	})
}

func fields(
	fieldIds ...string,
) []columnmapping.Field {

	return lo.Map(fieldIds, func(fieldId string, _ int) columnmapping.Field {
		return columnmapping.Field{Id: fieldId, Type: "text"}
	})
}
