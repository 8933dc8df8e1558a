package tableau

// GraphQL node selections for the Tableau Metadata API. Each document is
// the body substituted into the connection envelope built by Client.Query.

const workbookQuery = `{
  id
  name
  luid
  uri
  projectName
  owner {
    username
  }
  description
  uri
  createdAt
  updatedAt
  tags {
    name
  }
  sheets {
    id
    name
    path
    createdAt
    updatedAt
    tags {
      name
    }
    containedInDashboards {
      name
      path
    }
    upstreamDatasources {
      id
      name
    }
    datasourceFields {
      __typename
      id
      name
      description
      datasource {
        id
        name
      }
      ... on ColumnField {
        dataCategory
        role
        dataType
        aggregation
      }
      ... on CalculatedField {
        role
        dataType
        aggregation
        formula
      }
      ... on DatasourceField {
        remoteField {
          __typename
          id
          name
          description
          folderName
          ... on ColumnField {
            dataCategory
            role
            dataType
            aggregation
          }
          ... on CalculatedField {
            role
            dataType
            aggregation
            formula
          }
        }
      }
    }
  }
  dashboards {
    id
    name
    path
    createdAt
    updatedAt
    sheets {
      id
      name
    }
  }
  embeddedDatasources {
    __typename
    id
    name
    hasExtracts
    extractLastRefreshTime
    extractLastIncrementalUpdateTime
    extractLastUpdateTime
    upstreamDatabases {
      id
      name
      connectionType
    }
    upstreamTables {
      id
      name
      schema
      connectionType
      description
      columns {
        name
        remoteType
      }
    }
    fields {
      __typename
      id
      name
      description
      isHidden
      folderName
      ... on ColumnField {
        dataCategory
        role
        dataType
        defaultFormat
        aggregation
        columns {
          table {
            id
            name
          }
        }
      }
      ... on CalculatedField {
        role
        dataType
        defaultFormat
        aggregation
        formula
      }
    }
    workbook {
      name
      projectName
    }
  }
}`

const publishedDatasourceQuery = `{
  __typename
  id
  name
  hasExtracts
  extractLastRefreshTime
  extractLastIncrementalUpdateTime
  extractLastUpdateTime
  downstreamSheets {
    id
    name
  }
  upstreamTables {
    id
    name
    schema
    connectionType
    description
    columns {
      name
      remoteType
    }
  }
  fields {
    __typename
    id
    name
    description
    isHidden
    folderName
    ... on ColumnField {
      dataCategory
      role
      dataType
      defaultFormat
      aggregation
      columns {
        table {
          id
          name
        }
      }
    }
    ... on CalculatedField {
      role
      dataType
      defaultFormat
      aggregation
      formula
    }
  }
  upstreamDatabases {
    id
    name
    connectionType
  }
  owner {
    username
  }
  description
  uri
  projectName
}`

const customSQLQuery = `{
  id
  name
  query
  columns {
    id
    name
    remoteType
    description
    referencedByFields {
      datasource {
        __typename
        id
        name
        upstreamDatabases {
          id
          name
        }
        upstreamTables {
          id
          name
          schema
          connectionType
          columns {
            name
            remoteType
          }
        }
        workbook {
          name
          projectName
        }
      }
    }
  }
  tables {
    id
    name
    schema
    connectionType
  }
  datasources {
    id
    name
  }
  description
}`
