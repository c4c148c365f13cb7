package w3d

// Chunk types.
const (
	chunkMesh               uint32 = 0x00000000
	chunkVertices           uint32 = 0x00000002
	chunkVertexNormals      uint32 = 0x00000003
	chunkMeshUserText       uint32 = 0x0000000C
	chunkVertexInfluences   uint32 = 0x0000000E
	chunkMeshHeader3        uint32 = 0x0000001F
	chunkTriangles          uint32 = 0x00000020
	chunkVertexShadeIndices uint32 = 0x00000022
	chunkMaterialInfo       uint32 = 0x00000028
	chunkShaders            uint32 = 0x00000029
	chunkVertexMaterials    uint32 = 0x0000002A
	chunkVertexMaterial     uint32 = 0x0000002B
	chunkVertexMaterialName uint32 = 0x0000002C
	chunkVertexMaterialInfo uint32 = 0x0000002D
	chunkVertexMapperArgs0  uint32 = 0x0000002E
	chunkVertexMapperArgs1  uint32 = 0x0000002F
	chunkTextures           uint32 = 0x00000030
	chunkTexture            uint32 = 0x00000031
	chunkTextureName        uint32 = 0x00000032
	chunkTextureInfo        uint32 = 0x00000033
	chunkMaterialPass       uint32 = 0x00000038
	chunkVertexMaterialIDs  uint32 = 0x00000039
	chunkShaderIDs          uint32 = 0x0000003A
	chunkShaderMaterialID   uint32 = 0x0000003F
	chunkTextureStage       uint32 = 0x00000048
	chunkTextureIDs         uint32 = 0x00000049
	chunkStageTexcoords     uint32 = 0x0000004A
	chunkShaderMaterials    uint32 = 0x00000050
	chunkShaderMaterial     uint32 = 0x00000051
	chunkShaderMatHeader    uint32 = 0x00000052
	chunkShaderMatProperty  uint32 = 0x00000053
	chunkTangents           uint32 = 0x00000060
	chunkBitangents         uint32 = 0x00000061
	chunkAABBTree           uint32 = 0x00000090
	chunkAABBTreeHeader     uint32 = 0x00000091
	chunkAABBTreePolys      uint32 = 0x00000092
	chunkAABBTreeNodes      uint32 = 0x00000093
)

const (
	subChunkFlag  uint32 = 0x80000000
	leafFlag      uint32 = 0x80000000
	nameLen              = 16
	shaderTypeLen        = 32
	chunkHeadSize        = 8
)
