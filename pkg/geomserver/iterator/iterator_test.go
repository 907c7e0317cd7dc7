//go:build test_unit

/*
Copyright 2024 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package iterator

import (
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/geomserver/geomservertest"
	"github.com/nuclio/geomserver/pkg/ifc/schema"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type IteratorTestSuite struct {
	suite.Suite
	logger  logger.Logger
	model   *geomservertest.Model
	kernel  *geomservertest.Kernel
	catalog *schema.Catalog
}

func (suite *IteratorTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.model = geomservertest.NewModel()
	suite.kernel = geomservertest.NewKernel()
	suite.catalog = schema.NewCatalog("IfcWallType", "IfcBuildingStorey")
}

func (suite *IteratorTestSuite) TestEmptyModel() {
	iterator := suite.createIterator()

	suite.Require().False(iterator.HasMore())
	suite.Require().Equal(0, iterator.Remaining())

	_, err := iterator.Next()
	suite.Require().Equal(ErrExhausted, errors.RootCause(err))
}

func (suite *IteratorTestSuite) TestCandidates() {
	suite.model.AddElement(1, "IfcBuildingStorey", "storey", "Storey", 0, 100)
	suite.model.AddElement(2, "IfcWall", "wall", "Wall", 0, 101)
	suite.model.AddElement(3, "IfcWallType", "type", "Type", 0, 102)
	suite.model.AddElement(4, "IfcDoor", "door", "Door", 0, 0)
	suite.model.AddElement(5, "IfcSlab", "slab", "Slab", 0, 103)

	iterator := suite.createIterator()
	suite.Require().Equal(2, iterator.Candidates())

	// nothing is resolved until asked
	suite.Require().Empty(suite.kernel.Requested)
}

func (suite *IteratorTestSuite) TestSkipsElementsWithoutGeometry() {
	suite.model.AddElement(1, "IfcWall", "empty", "", 0, 100)
	suite.model.AddElement(2, "IfcWall", "failing", "", 0, 101)
	suite.model.AddElement(3, "IfcSlab", "good", "Slab", 0, 102)
	suite.model.AddElement(4, "IfcBeam", "also empty", "", 0, 103)

	suite.kernel.Errors[2] = errors.New("Unsupported geometry")
	suite.kernel.AddPart(3, 10, mgl64.Ident4(), geomserver.NoColor, geomservertest.Triangle())

	iterator := suite.createIterator()
	suite.Require().Equal(4, iterator.Remaining())

	suite.Require().True(iterator.HasMore())
	suite.Require().Equal(2, iterator.Skipped())

	// asking again does not advance
	suite.Require().True(iterator.HasMore())
	suite.Require().Equal([]uint32{1, 2, 3}, suite.kernel.Requested)

	element, err := iterator.Next()
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(3), element.ExpressID)
	suite.Require().Equal("good", element.GUID)
	suite.Require().Equal("Slab", element.Name)
	suite.Require().Equal("IfcSlab", element.TypeName)
	suite.Require().Equal(uint32(102), element.RepresentationID)
	suite.Require().Equal(int64(geomserver.NoParent), element.ParentID)
	suite.Require().Len(element.FlatMesh.Parts, 1)

	suite.Require().False(iterator.HasMore())
	suite.Require().Equal(3, iterator.Skipped())
	suite.Require().Equal(0, iterator.Remaining())

	_, err = iterator.Next()
	suite.Require().Equal(ErrExhausted, errors.RootCause(err))
}

func (suite *IteratorTestSuite) TestOrderAndProgress() {
	for expressID := uint32(1); expressID <= 5; expressID++ {
		suite.model.AddElement(expressID, "IfcColumn", "column", "", 0, 100+expressID)
		suite.kernel.AddPart(expressID, expressID, mgl64.Ident4(), geomserver.NoColor, geomservertest.Triangle())
	}

	iterator := suite.createIterator()

	var visited []uint32
	for iterator.HasMore() {
		element, err := iterator.Next()
		suite.Require().NoError(err)

		visited = append(visited, element.ExpressID)
	}

	suite.Require().Equal([]uint32{1, 2, 3, 4, 5}, visited)
	suite.Require().Equal(0, iterator.Skipped())
}

func (suite *IteratorTestSuite) TestNextWithoutHasMore() {
	suite.model.AddElement(1, "IfcWall", "first", "", 0, 100)
	suite.model.AddElement(2, "IfcWall", "second", "", 0, 101)
	suite.kernel.AddPart(1, 10, mgl64.Ident4(), geomserver.NoColor, geomservertest.Triangle())
	suite.kernel.AddPart(2, 10, mgl64.Ident4(), geomserver.NoColor, nil)

	iterator := suite.createIterator()

	first, err := iterator.Next()
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(1), first.ExpressID)

	second, err := iterator.Next()
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(2), second.ExpressID)
}

func (suite *IteratorTestSuite) TestParentAndDecodedNames() {
	suite.model.AddElement(1, "IfcWall", "guid", "W\\X2\\00E4\\X0\\nde", 0, 100)
	suite.model.Parents[1] = 42
	suite.kernel.AddPart(1, 10, mgl64.Ident4(), geomserver.NoColor, geomservertest.Triangle())

	element, err := suite.createIterator().Next()
	suite.Require().NoError(err)
	suite.Require().Equal("Wände", element.Name)
	suite.Require().Equal(int64(42), element.ParentID)
}

func (suite *IteratorTestSuite) createIterator() *Iterator {
	return NewIterator(suite.logger, suite.model, suite.catalog, suite.kernel)
}

func TestIteratorTestSuite(t *testing.T) {
	suite.Run(t, new(IteratorTestSuite))
}
