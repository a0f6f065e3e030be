/*
Package parser implements the SQL dialect understood by chunkdb.

Grammar

    stmt      := create | insert | select | update | delete [ ";" ]
    create    := CREATE TABLE [ IF NOT EXISTS ] name "(" coldef { "," coldef } ")"
    coldef    := name type [ "(" int ")" ]
    insert    := INSERT INTO name "(" name { "," name } ")" VALUES "(" value { "," value } ")"
    select    := SELECT ( "*" | name { "," name } ) FROM name [ WHERE cond ]
    update    := UPDATE name SET name "=" value { "," name "=" value } [ WHERE cond ]
    delete    := DELETE FROM name [ WHERE cond ]
    cond      := cmp { AND cmp }
    cmp       := value ( "=" | ">" ) value
    value     := int | float | string | NULL | name

Keywords are case-insensitive, identifiers keep their case. Parse errors are
collected and returned together as Errors.
*/
package parser
